package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"gocc/pkg/compiler"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "log compilation progress and artefact paths")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-v] <source.c> [<output_name>]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(compiler.ExitDiagnostic)
	}

	source := flag.Arg(0)
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if flag.NArg() >= 2 {
		name = flag.Arg(1)
	}

	cfg, err := compiler.LoadConfig(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(compiler.ExitDiagnostic)
	}

	verbosity := 1
	if *verbose || cfg.Build.Verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
	log := commonlog.GetLogger("gocc")

	log.Infof("compiling %s -> %s", source, name)

	ctx := compiler.NewContext()
	ctx.IncludeDirs = cfg.Build.Include

	asm, err := compiler.CompileFile(ctx, source)
	for _, w := range ctx.Warnings {
		fmt.Fprintln(os.Stderr, w.Error())
	}
	if err != nil {
		var diag *compiler.Diagnostic
		if errors.As(err, &diag) {
			fmt.Fprintln(os.Stderr, diag.Error())
			os.Exit(diag.ExitStatus())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(compiler.ExitDiagnostic)
	}
	log.Info("code generation complete")

	for _, dir := range []string{cfg.Output.Asm, cfg.Output.Bin} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(compiler.ExitDiagnostic)
		}
	}

	asmFile := filepath.Join(cfg.Output.Asm, name+".s")
	if err := os.WriteFile(asmFile, []byte(asm), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(compiler.ExitDiagnostic)
	}
	log.Infof("assembly written to %s", asmFile)

	exeFile := filepath.Join(cfg.Output.Bin, name+".exe")
	cmd := exec.Command(cfg.Build.Assembler, "-o", exeFile, asmFile)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "%s: assembly or linking failed\n", cfg.Build.Assembler)
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(compiler.ExitDiagnostic)
	}
	log.Infof("executable written to %s", exeFile)
}
