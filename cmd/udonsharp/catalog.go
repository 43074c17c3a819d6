package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"udonsharp/internal/resolver"
	"udonsharp/internal/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [flags]",
	Short: "List known types and their extern signatures",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().String("namespace", "", "only list types in this namespace (and nested namespaces)")
	catalogCmd.Flags().Bool("exposed-only", false, "only list members the VM exposes")
	catalogCmd.Flags().StringSlice("catalog", nil, "extra type catalog file (TOML), repeatable")
}

type catalogListOptions struct {
	namespace   string
	exposedOnly bool
}

func runCatalog(cmd *cobra.Command, args []string) error {
	var opts catalogListOptions
	var err error
	if opts.namespace, err = cmd.Flags().GetString("namespace"); err != nil {
		return fmt.Errorf("failed to get namespace flag: %w", err)
	}
	if opts.exposedOnly, err = cmd.Flags().GetBool("exposed-only"); err != nil {
		return fmt.Errorf("failed to get exposed-only flag: %w", err)
	}
	extra, err := cmd.Flags().GetStringSlice("catalog")
	if err != nil {
		return fmt.Errorf("failed to get catalog flag: %w", err)
	}

	s := settings{catalogs: extra}
	if m, err := loadManifest(cmd); err != nil {
		return err
	} else if m != nil {
		s.catalogs = append(m.Catalogs(), extra...)
		s.resolver = m.ResolverOptions()
	}
	catalog, err := s.buildCatalog()
	if err != nil {
		return err
	}
	return listCatalog(cmd.OutOrStdout(), resolver.New(catalog, s.resolver), opts)
}

// listCatalog prints one block per type: its full name and kind, then the
// extern signature of every member, sorted.
func listCatalog(w io.Writer, r *resolver.Context, opts catalogListOptions) error {
	ns := strings.TrimSpace(opts.namespace)
	for _, t := range r.Catalog().Types() {
		if r.IsProxy(t) || !inNamespace(t, ns) {
			continue
		}
		sigs := memberSignatures(r, t, opts.exposedOnly)
		if opts.exposedOnly && len(sigs) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s (%s)\n", t.FullName(), t.Kind); err != nil {
			return err
		}
		for _, sig := range sigs {
			if _, err := fmt.Fprintf(w, "  %s\n", sig); err != nil {
				return err
			}
		}
	}
	return nil
}

func inNamespace(t *types.Type, ns string) bool {
	if ns == "" {
		return true
	}
	return t.Namespace == ns || strings.HasPrefix(t.Namespace, ns+".")
}

func memberSignatures(r *resolver.Context, t *types.Type, exposedOnly bool) []string {
	seen := map[string]bool{}
	var out []string
	add := func(sig string) {
		if seen[sig] {
			return
		}
		exposed := r.IsExposedName(sig)
		if exposedOnly && !exposed {
			return
		}
		seen[sig] = true
		if !exposed {
			sig += "  (not exposed)"
		}
		out = append(out, sig)
	}
	for _, m := range t.DeclaredMethods() {
		add(r.MethodName(m))
	}
	for _, p := range t.Properties() {
		if p.Getter != nil {
			add(r.MethodName(p.Getter))
		}
		if p.Setter != nil {
			add(r.MethodName(p.Setter))
		}
	}
	for _, f := range t.Fields() {
		add(r.FieldGetterName(f))
		if !f.ReadOnly && !f.Const {
			add(r.FieldSetterName(f))
		}
	}
	sort.Strings(out)
	return out
}
