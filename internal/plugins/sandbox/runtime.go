package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// Runtime wraps one goja VM holding a single plugin's code. Each plugin
// gets its own VM, so there is no sharing of globals or prototypes across
// plugins or with host internals. The runtime itself is not goroutine
// safe: the lifecycle manager guarantees a single logical owner per
// plugin and serializes every entry into the VM.
type Runtime struct {
	vm       *goja.Runtime
	pluginID string
	log      *logging.Logger

	activate   goja.Callable
	deactivate goja.Callable
}

// New creates a sandboxed runtime for a plugin
func New(pluginID string, log *logging.Logger) *Runtime {
	r := &Runtime{
		vm:       goja.New(),
		pluginID: pluginID,
		log:      log.Named("sandbox"),
	}
	r.vm.SetMaxCallStackSize(1024)
	r.setupGlobals()
	return r
}

// Load evaluates the plugin's code and resolves the two required entry
// points. Both activate and deactivate must be invocable top-level
// functions; anything else is a load failure.
func (r *Runtime) Load(code string) error {
	if _, err := r.vm.RunString(code); err != nil {
		return fmt.Errorf("code failed to parse: %w", err)
	}

	activate, ok := goja.AssertFunction(r.vm.Get("activate"))
	if !ok {
		return fmt.Errorf("missing required export: activate must be a function")
	}
	deactivate, ok := goja.AssertFunction(r.vm.Get("deactivate"))
	if !ok {
		return fmt.Errorf("missing required export: deactivate must be a function")
	}

	r.activate = activate
	r.deactivate = deactivate
	return nil
}

// RunActivate invokes the plugin's activate(api) under a timeout. An
// exceeded timeout interrupts the VM and surfaces as an error.
func (r *Runtime) RunActivate(ctx context.Context, timeout time.Duration, api interface{}) error {
	if r.activate == nil {
		return fmt.Errorf("plugin code not loaded")
	}
	return r.callBounded(ctx, timeout, r.activate, r.vm.ToValue(api))
}

// RunDeactivate invokes the plugin's deactivate() under a timeout.
func (r *Runtime) RunDeactivate(ctx context.Context, timeout time.Duration) error {
	if r.deactivate == nil {
		return fmt.Errorf("plugin code not loaded")
	}
	return r.callBounded(ctx, timeout, r.deactivate)
}

// CallHandler invokes an event handler previously registered by the
// plugin. Panics inside the VM are converted to errors.
func (r *Runtime) CallHandler(fn goja.Callable, event types.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()

	val, err := fn(goja.Undefined(), r.vm.ToValue(event.Name), r.vm.ToValue(event.Payload))
	if err != nil {
		return err
	}
	return r.checkResult(val)
}

// AssertCallable converts a JS value into a callable, if it is one
func (r *Runtime) AssertCallable(v goja.Value) (goja.Callable, bool) {
	return goja.AssertFunction(v)
}

// VM exposes the underlying runtime for api handle injection
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// callBounded runs a callable with interrupt-based timeout and
// cancellation, mirroring the browser sandbox execution path.
func (r *Runtime) callBounded(ctx context.Context, timeout time.Duration, fn goja.Callable, args ...goja.Value) (err error) {
	// A previous call's timer may have fired after its body returned
	r.vm.ClearInterrupt()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	defer func() {
		r.vm.ClearInterrupt()
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin panic: %v", rec)
		}
	}()

	val, err := fn(goja.Undefined(), args...)
	if err != nil {
		return err
	}
	return r.checkResult(val)
}

// checkResult surfaces a rejected promise returned by an async entry point
func (r *Runtime) checkResult(val goja.Value) error {
	if val == nil {
		return nil
	}
	if p, ok := val.Export().(*goja.Promise); ok && p.State() == goja.PromiseStateRejected {
		return fmt.Errorf("rejected: %s", p.Result().String())
	}
	return nil
}

// setupGlobals strips ambient host access and wires console into the log
func (r *Runtime) setupGlobals() {
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("globalThis_host", goja.Undefined())

	console := r.vm.NewObject()
	console.Set("log", r.makeConsoleFunc(zap.InfoLevel.String()))
	console.Set("info", r.makeConsoleFunc(zap.InfoLevel.String()))
	console.Set("warn", r.makeConsoleFunc(zap.WarnLevel.String()))
	console.Set("error", r.makeConsoleFunc(zap.ErrorLevel.String()))
	r.vm.Set("console", console)

	// Timers would outlive the per-call ownership model
	r.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		entry := r.log.With(zap.String("plugin_id", r.pluginID))
		switch level {
		case "warn":
			entry.Warn(msg)
		case "error":
			entry.Error(msg)
		default:
			entry.Info(msg)
		}
		return goja.Undefined()
	}
}
