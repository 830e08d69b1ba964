/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jacobin/globals"
	"jacobin/trace"
)

const jacobinVersion = "0.1.0"

// getEnvArgs returns the extra command-line words Java's own launcher
// convention picks up from the environment (spec §6 "External interfaces"),
// in the same precedence order the JDK documents: JAVA_TOOL_OPTIONS first
// (always honored, prints a diagnostic on some JVMs), then _JAVA_OPTIONS,
// then JDK_JAVA_OPTIONS.
func getEnvArgs() []string {
	var out []string
	for _, name := range []string{"JAVA_TOOL_OPTIONS", "_JAVA_OPTIONS", "JDK_JAVA_OPTIONS"} {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.Fields(v)...)
		}
	}
	return out
}

// HandleCli parses argv (merged with the env-var args above) into the one
// Globals struct, per spec §6. -help and -showversion are handled directly
// in the teacher's legacy single-dash style rather than as cobra flags,
// because their job is to act before any other flag parsing happens
// (help always wins, showversion is checked for before the rest of the
// command line is even validated); everything else is a cobra flag on a
// single root command (spec's cobra-based CLI, see SPEC_FULL.md Ambient
// Stack).
func HandleCli(argv []string, stdout, stderr io.Writer) error {
	g := globals.GetGlobalRef()
	merged := append(getEnvArgs(), argv[1:]...)

	var rest []string
	for _, a := range merged {
		switch a {
		case "-help", "--help", "-h":
			showUsage(stderr)
			g.Lock()
			g.ExitNow = true
			g.Unlock()
			return nil
		case "-showversion", "--showversion":
			showVersion(stdout)
		default:
			rest = append(rest, a)
		}
	}

	root := newRootCmd(g)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(rest)
	return root.Execute()
}

// newRootCmd builds the cobra command carrying every structured flag
// spec §6 calls out (verifier mode/fallback, --add-reads/--add-exports
// module overrides, --strict-jdk, and the -trace:* family), writing
// everything it parses into g rather than into package-level flag vars
// (globals' "no hidden singletons" design note).
func newRootCmd(g *globals.Globals) *cobra.Command {
	var (
		verifierMode     string
		verifierFallback string
		addReads         []string
		addExports       []string
	)

	cmd := &cobra.Command{
		Use:           "jacobin [flags] <class-or-jar> [args...]",
		Short:         "Jacobin: a Java Virtual Machine written in Go",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				g.StartingJar = args[0]
			}
			switch verifierMode {
			case "", "standard":
				g.VerifierMode = globals.Standard
			case "permissive":
				g.VerifierMode = globals.Permissive
			case "disabled":
				g.VerifierMode = globals.Disabled
			default:
				return fmt.Errorf("unrecognized --verifier mode %q", verifierMode)
			}
			switch verifierFallback {
			case "", "stackmap-absent":
				g.VerifierFallback = globals.FallbackOnStackMapAbsent
			case "none":
				g.VerifierFallback = globals.FallbackNone
			case "any-failure":
				g.VerifierFallback = globals.FallbackOnAnyFailure
			default:
				return fmt.Errorf("unrecognized --verifier-fallback %q", verifierFallback)
			}
			for _, r := range addReads {
				src, tgt, ok := strings.Cut(r, "=")
				if !ok {
					return fmt.Errorf("--add-reads %q: expected source=target", r)
				}
				g.ExtraReads = append(g.ExtraReads, globals.ModuleReadOverride{Source: src, Target: tgt})
			}
			for _, e := range addExports {
				lhs, tgt, ok := strings.Cut(e, "=")
				if !ok {
					return fmt.Errorf("--add-exports %q: expected source/package=target", e)
				}
				src, pkg, ok := strings.Cut(lhs, "/")
				if !ok {
					return fmt.Errorf("--add-exports %q: expected source/package=target", e)
				}
				g.ExtraExports = append(g.ExtraExports, globals.ModuleExportOverride{Source: src, Package: pkg, Target: tgt})
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&verifierMode, "verifier", "standard", "verifier mode: standard, permissive, or disabled")
	flags.StringVar(&verifierFallback, "verifier-fallback", "stackmap-absent", "when the slow verifier path runs: stackmap-absent, none, or any-failure")
	flags.StringArrayVar(&addReads, "add-reads", nil, "source=target module read edge override")
	flags.StringArrayVar(&addExports, "add-exports", nil, "source/package=target module export override")
	flags.BoolVar(&g.StrictJDK, "strict-jdk", false, "reject any class-file feature beyond MaxJavaVersion")
	flags.BoolVar(&globals.TraceClass, "trace:class", false, "trace class-loading events")
	flags.BoolVar(&globals.TraceCloadi, "trace:cloadi", false, "trace class-loading initialization detail")
	flags.BoolVar(&globals.TraceInst, "trace:inst", false, "trace instruction execution")
	flags.BoolVar(&globals.TraceVerbose, "verbose", false, "emit FINE-level trace output")

	cobra.OnInitialize(func() {
		if globals.TraceVerbose {
			trace.SetLevel(trace.FINE)
		}
	})

	return cmd
}

func showUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: jacobin [options] <class-or-jar> [args...]")
	fmt.Fprintln(w, "where options include:")
	fmt.Fprintln(w, "  -help, --help            show this message and exit")
	fmt.Fprintln(w, "  -showversion             print version information and continue")
	fmt.Fprintln(w, "  --verifier <mode>        standard | permissive | disabled")
	fmt.Fprintln(w, "  --verifier-fallback <m>  stackmap-absent | none | any-failure")
	fmt.Fprintln(w, "  --add-reads <src>=<tgt>  add a module read edge")
	fmt.Fprintln(w, "  --add-exports <src>/<pkg>=<tgt>  add a module export edge")
	fmt.Fprintln(w, "  --strict-jdk             reject class-file features beyond MaxJavaVersion")
	fmt.Fprintln(w, "  --verbose                emit FINE-level trace output")
}

func showVersion(w io.Writer) {
	fmt.Fprintf(w, "Jacobin VM v.%s\n", jacobinVersion)
}

func showCopyright() {
	fmt.Printf("Jacobin VM v.%s\n", jacobinVersion)
	fmt.Println("Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.")
}
