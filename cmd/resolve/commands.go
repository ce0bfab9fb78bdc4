package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-resolver/abi"
	"github.com/wippyai/wasm-resolver/errors"
	"github.com/wippyai/wasm-resolver/metadata"
)

func newTypesCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "types <library>",
		Short: "List the types a library defines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			location, _, err := flags.library(args, 0)
			if err != nil {
				return err
			}
			r, err := flags.newResolver(ctx, location, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			types, err := r.LibraryTypes(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range types {
				shape := "static"
				if !t.StaticOnly() {
					shape = "instantiable"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Kind, shape, t.Name)
			}
			return w.Flush()
		},
	}
}

func newDescribeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <library> <type>",
		Short: "Show the namespace, base type, attributes and members of a type",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			location, rest, err := flags.library(args, 1)
			if err != nil {
				return err
			}
			r, err := flags.newResolver(ctx, location, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			typ, err := r.LibraryType(ctx, rest[0])
			if err != nil {
				return err
			}
			return describeType(cmd.OutOrStdout(), typ)
		},
	}
}

func describeType(out io.Writer, typ *metadata.Type) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "type\t%s\n", typ.Name)
	fmt.Fprintf(w, "kind\t%s\n", typ.Kind)
	fmt.Fprintf(w, "namespace\t%s\n", typ.Namespace)
	if typ.Base != "" {
		fmt.Fprintf(w, "base\t%s\n", typ.Base)
	}
	if len(typ.Interfaces) > 0 {
		fmt.Fprintf(w, "interfaces\t%s\n", strings.Join(typ.Interfaces, ", "))
	}
	if len(typ.Attributes) > 0 {
		attrs := make([]string, len(typ.Attributes))
		for i, a := range typ.Attributes {
			attrs[i] = a.String()
		}
		fmt.Fprintf(w, "attributes\t%s\n", strings.Join(attrs, ", "))
	}
	if typ.Docs != "" {
		fmt.Fprintf(w, "docs\t%s\n", strings.ReplaceAll(typ.Docs, "\n", " "))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "members:")
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, m := range typ.Members() {
		fmt.Fprintf(w, "  %s\t%s\n", memberLabel(m), memberText(m))
	}
	return w.Flush()
}

func memberLabel(m metadata.Member) string {
	if m.Method != nil && m.Kind == metadata.MemberMethod {
		return m.Method.Kind.String()
	}
	return m.Kind.String()
}

func memberText(m metadata.Member) string {
	if m.Method == nil {
		return m.Name
	}
	sig := m.Method.Signature()
	if m.Method.Unsupported() {
		sig += " (unsupported)"
	}
	return sig
}

func newCallCommand(flags *rootFlags) *cobra.Command {
	var ctorArgs []string

	cmd := &cobra.Command{
		Use:   "call <library> <type> <method> [args...]",
		Short: "Invoke a method of a library type",
		Long: `Invoke a static method, or construct the type with --new arguments and
invoke an instance method. Arguments are parsed according to the declared
parameter types; the first overload whose parameters all parse is called.`,
		Example: `  resolve call mathlib.wasm m:lib/math@1.0.0 plus 2 3
  resolve call mathlib.wasm counter add 5 --new 10`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			location, rest, err := flags.library(args, 2)
			if err != nil {
				return err
			}
			if len(rest) < 2 {
				return errors.InvalidArgument(errors.PhaseResolve, "type and method are required")
			}
			typeName, method, texts := rest[0], rest[1], rest[2:]

			r, err := flags.newResolver(ctx, location, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer flags.closeResolver(ctx, r)

			typ, err := r.LibraryType(ctx, typeName)
			if err != nil {
				return err
			}
			if typ.StaticOnly() {
				if len(ctorArgs) > 0 {
					return errors.NotFound(errors.PhaseResolve, "constructor", typ.Name)
				}
				err = r.LoadStaticType(ctx, typeName)
			} else {
				var values []any
				values, err = parseArgs(typ.Constructor, ctorArgs)
				if err == nil {
					err = r.LoadInstantiableType(ctx, typeName, values...)
				}
			}
			if err != nil {
				return err
			}

			m, values, err := bindArgs(typ, method, texts)
			if err != nil {
				return err
			}
			var result any
			if m.Kind == metadata.MethodInstance {
				result, err = r.InvokeMethodValue(ctx, method, values...)
			} else {
				result, err = r.InvokeStaticValue(ctx, method, values...)
			}
			if err != nil {
				return err
			}
			if m.Result != nil {
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(m.Result.Type, result))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&ctorArgs, "new", nil, "constructor argument (repeatable)")
	return cmd
}

// parseArgs converts texts according to the parameters of m.
func parseArgs(m *metadata.Method, texts []string) ([]any, error) {
	if len(texts) != len(m.Params) {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidArgument).
			Name(m.Name).
			Detail("expected %d arguments, got %d", len(m.Params), len(texts)).
			Build()
	}
	values := make([]any, len(texts))
	for i, p := range m.Params {
		if p.Type == nil {
			return nil, errors.Unsupported(errors.PhaseParse, p.TypeName())
		}
		v, err := abi.ParseArg(texts[i], p.Type)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// bindArgs picks the first callable overload of name whose parameters accept
// texts and returns the parsed arguments.
func bindArgs(typ *metadata.Type, name string, texts []string) (*metadata.Method, []any, error) {
	var parseErr error
	for _, m := range typ.MethodsNamed(name) {
		if len(m.Params) != len(texts) {
			continue
		}
		values, err := parseArgs(m, texts)
		if err != nil {
			parseErr = err
			continue
		}
		return m, values, nil
	}
	if parseErr != nil {
		return nil, nil, parseErr
	}
	return nil, nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
		Name(typ.Name + "." + name).
		Detail("no method taking %d arguments", len(texts)).
		Build()
}

// formatValue renders a lifted result for display.
func formatValue(t wit.Type, v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case rune:
		if _, ok := t.(wit.Char); ok {
			return string(val)
		}
	}
	return fmt.Sprint(v)
}
