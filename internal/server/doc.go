// Package server assembles the plugin runtime and serves it over HTTP.
package server
