package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ia-bridge/bridge"
)

func runPlain(ctx context.Context, s *session, args []string, watch time.Duration) error {
	client := s.client
	fmt.Printf("Runtime: %s\n", s.target)
	fmt.Printf("Client: %s\n\n", client.ID())
	printObject(ctx, client.RemoteObject)

	if types := client.ModelTypes(); len(types) > 0 {
		fmt.Printf("\nModel types:\n")
		for _, mt := range types {
			fmt.Printf("  %s (%d)\n", mt.TypeName, mt.TypeID)
		}
	}

	var unsubs []bridge.Unsubscribe
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()
	if watch > 0 {
		_, _, events := client.Members()
		for _, name := range events {
			name := name
			u, err := client.Subscribe(ctx, name, func(args ...any) {
				fmt.Printf("event %s(%s)\n", name, formatArgs(args))
			})
			if err != nil {
				s.log.Warn("subscribe failed", zap.String("event", name), zap.Error(err))
				continue
			}
			unsubs = append(unsubs, u)
		}
	}

	if len(args) > 0 {
		callArgs, err := parseArgs(args[1:])
		if err != nil {
			return err
		}
		fmt.Printf("\nCalling %s(%s)...\n", args[0], formatArgs(callArgs))
		result, err := client.Invoke(ctx, args[0], callArgs...)
		if err != nil {
			return fmt.Errorf("call %s: %w", args[0], err)
		}
		fmt.Printf("Result: %s\n", formatValue(result))
	}

	if watch > 0 {
		fmt.Printf("\nWatching events for %s...\n", watch)
		select {
		case <-time.After(watch):
		case <-ctx.Done():
		}
	}
	return nil
}

func printObject(ctx context.Context, obj *bridge.RemoteObject) {
	methods, properties, events := obj.Members()
	desc := obj.Descriptors()

	fmt.Printf("Methods:\n")
	for _, name := range methods {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("Properties:\n")
	for _, name := range properties {
		v, err := obj.GetProperty(ctx, name)
		value := formatValue(v)
		if err != nil {
			value = "error: " + err.Error()
		}
		typ, writable := propertyMeta(desc.Properties[name])
		access := ""
		if !writable {
			access = " (read-only)"
		}
		fmt.Printf("  %s: %s = %s%s\n", name, typ, value, access)
	}
	fmt.Printf("Events:\n")
	for _, name := range events {
		fmt.Printf("  %s\n", name)
	}
}

// propertyMeta reads the type name and write flag a host reports for a property.
func propertyMeta(m bridge.Member) (typ string, writable bool) {
	typ, _ = m.Meta["type"].(string)
	writable, ok := m.Meta["canWrite"].(bool)
	if !ok {
		writable = true
	}
	return typ, writable
}

// parseArgs decodes each argument as JSON, falling back to the raw string.
func parseArgs(raw []string) ([]any, error) {
	out := make([]any, len(raw))
	for i, a := range raw {
		var v any
		if err := json.Unmarshal([]byte(a), &v); err != nil {
			v = a
		}
		out[i] = v
	}
	return out, nil
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case *bridge.RemoteObject:
		return "<object " + x.ID() + ">"
	case string:
		return fmt.Sprintf("%q", x)
	case []any:
		return "[" + formatArgs(x) + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatValue(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", x)
	}
}
