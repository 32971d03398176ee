// A minimal example plugin. Build it with:
//
//	go build -buildmode=plugin -o libhello_plugins.so ./modules/hello
//
// and place the result in a directory on PLUGINHOST_LIBRARY_PATH, next to
// the hello.plugin.hcl manifest.
package main

import "fmt"

type greeter struct{}

func (greeter) Greet(name string) string {
	return fmt.Sprintf("hello, %s", name)
}

// PluginFactories is the symbol the host looks up after opening the
// library, keyed by implementation type name.
var PluginFactories = map[string]func() any{
	"hello::Greeter": func() any { return &greeter{} },
}

func main() {}
