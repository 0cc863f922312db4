package parser

import "fmt"

// MalformedRegistryError reports a schema violation in the registry
// document. Path is the XPath-style location of the offending element.
type MalformedRegistryError struct {
	Element string
	Path    string
	Reason  string
}

func (e *MalformedRegistryError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("malformed registry: %s at %s: %s", e.Element, e.Path, e.Reason)
	}
	return fmt.Sprintf("malformed registry: %s: %s", e.Path, e.Reason)
}

func malformed(element, path, format string, args ...any) error {
	return &MalformedRegistryError{
		Element: element,
		Path:    path,
		Reason:  fmt.Sprintf(format, args...),
	}
}
