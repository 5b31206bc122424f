package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/shicks/js65/asm"
	"github.com/shicks/js65/chunk"
	"github.com/shicks/js65/srcpos"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "asm65",
		Short: "js65 — a ca65-flavored 6502 assembler core driver",
	}
	root.AddCommand(newAssembleCmd())
	return root
}

func newAssembleCmd() *cobra.Command {
	var allowBrackets bool
	var reentrantScopes bool
	var overwrite string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "assemble <file>",
		Short: "Assemble a source file and print a summary of the resulting module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseOverwriteMode(overwrite)
			if err != nil {
				return err
			}
			return runAssemble(args[0], mode, allowBrackets, reentrantScopes, verbose)
		},
	}
	cmd.Flags().BoolVar(&allowBrackets, "allow-brackets", false, "accept [...] as an alternative to (...) for indirect addressing")
	cmd.Flags().BoolVar(&reentrantScopes, "reentrant-scopes", false, "permit re-entering a named .scope without error")
	cmd.Flags().StringVar(&overwrite, "overwrite", "forbid", "overwrite mode for fixed-origin writes: forbid|allow|warn")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every chunk and symbol in the resulting module")
	return cmd
}

func parseOverwriteMode(s string) (chunk.OverwriteMode, error) {
	switch s {
	case "forbid":
		return chunk.OverwriteForbid, nil
	case "allow":
		return chunk.OverwriteAllow, nil
	case "warn":
		return chunk.OverwriteWarn, nil
	default:
		return 0, errors.Errorf("unknown overwrite mode %q", s)
	}
}

func runAssemble(path string, mode chunk.OverwriteMode, allowBrackets, reentrantScopes, verbose bool) error {
	src, err := NewFileSource(path)
	if err != nil {
		return err
	}

	var opts []asm.Option
	opts = append(opts, asm.WithOverwriteMode(mode))
	if allowBrackets {
		opts = append(opts, asm.AllowBrackets())
	}
	if reentrantScopes {
		opts = append(opts, asm.ReentrantScopes())
	}
	opts = append(opts, asm.WithDiagnostics(asm.Diagnostics{
		Out:     func(msg string, pos srcpos.Pos) { fmt.Printf("%s: %s\n", pos, msg) },
		Warning: func(msg string, pos srcpos.Pos) { fmt.Fprintf(os.Stderr, "warning: %s: %s\n", pos, msg) },
	}))

	a := asm.New(opts...)
	if err := a.Run(context.Background(), src); err != nil {
		return err
	}
	mod, err := a.Module()
	if err != nil {
		return err
	}
	printModule(mod, verbose)
	return nil
}

func printModule(mod *asm.Module, verbose bool) {
	fmt.Printf("chunks: %d  symbols: %d  segments: %d\n", len(mod.Chunks), len(mod.Symbols), len(mod.Segments))
	if !verbose {
		return
	}
	for i, c := range mod.Chunks {
		fmt.Printf("chunk %d: segments=%v org=%v bytes=%d subs=%d asserts=%d\n",
			i, c.Segments, orgString(c), len(c.Data), len(c.Subs), len(c.Asserts))
	}
	for i, s := range mod.Symbols {
		if s.Export != "" {
			fmt.Printf("symbol %d: export=%s\n", i, s.Export)
		}
	}
}

func orgString(c asm.ModuleChunk) string {
	if !c.HasOrg {
		return "reloc"
	}
	return fmt.Sprintf("$%04X", c.Org)
}
