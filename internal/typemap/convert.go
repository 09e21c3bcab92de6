package typemap

import "strings"

// TypeResolver resolves type references in the document being rewritten.
type TypeResolver interface {
	// ResolveType returns the fully qualified name a reference denotes.
	ResolveType(text string) (string, bool)
	// DelegateParams returns the parameter types of a delegate declared in the document.
	DelegateParams(name string) ([]string, bool)
}

// ArgsConversion is the outcome of deriving event args from a handler type.
type ArgsConversion struct {
	// Target is the fully qualified target event-args type.
	Target string
	// Exact is false when the default was substituted for an unresolved type.
	Exact bool
}

// EventArgsForHandler derives the target event-args type carried by a
// legacy handler delegate type. The handler's second parameter is read
// from a document-declared delegate, the handler table, or a generic
// EventHandler argument, then mapped through the event-args table.
func (t *Table) EventArgsForHandler(handler string, r TypeResolver) ArgsConversion {
	handler = strings.TrimSpace(handler)

	param, ok := t.handlerArgsParam(handler, r)
	if !ok {
		return ArgsConversion{Target: t.defaultArgs}
	}
	if fqn, ok := r.ResolveType(param); ok {
		if target, mapped := t.mapEventArgs(fqn); mapped {
			return ArgsConversion{Target: target, Exact: true}
		}
	}
	// The parameter type may not resolve symbolically; retry on its raw text.
	target, mapped := t.mapEventArgs(param)
	return ArgsConversion{Target: target, Exact: mapped}
}

func (t *Table) handlerArgsParam(handler string, r TypeResolver) (string, bool) {
	if params, ok := r.DelegateParams(handler); ok {
		if len(params) < 2 {
			return "", false
		}
		return params[1], true
	}
	if fqn, ok := r.ResolveType(handler); ok {
		if params, ok := t.HandlerParams(fqn); ok {
			return params[1], true
		}
	}
	for _, cand := range t.Candidates(handler) {
		if params, ok := t.HandlerParams(cand); ok {
			return params[1], true
		}
	}
	if arg, ok := GenericArgument(handler, "EventHandler"); ok {
		return arg, true
	}
	return "", false
}

// GenericArgument returns the single type argument of "Name<Arg>" when the
// generic's simple name is name.
func GenericArgument(text, name string) (string, bool) {
	text = strings.Join(strings.Fields(text), "")
	open := strings.IndexByte(text, '<')
	if open < 0 || !strings.HasSuffix(text, ">") {
		return "", false
	}
	if SimpleName(text[:open]) != name {
		return "", false
	}
	arg := text[open+1 : len(text)-1]
	if arg == "" {
		return "", false
	}
	return arg, true
}
