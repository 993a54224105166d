// Command checker runs the local symptom scorer from the command line.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Skufu/AfyaChecker/internal/catalog"
	"github.com/Skufu/AfyaChecker/internal/logger"
	"github.com/Skufu/AfyaChecker/internal/report"
	"github.com/Skufu/AfyaChecker/internal/scorer"
)

const (
	exitOK    = 0
	exitError = 1
	exitInput = 2
)

type symptomList []string

func (l *symptomList) String() string { return strings.Join(*l, ",") }
func (l *symptomList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("checker", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var selected symptomList
	var (
		freeText    = fs.String("symptoms", "", "comma-separated symptoms, e.g. \"homa, kikohozi\"")
		langTag     = fs.String("lang", "sw", "output language: sw or en")
		reportPath  = fs.String("report", "", "write the text report to this file")
		chartPath   = fs.String("chart", "", "write the PNG chart to this file")
		list        = fs.Bool("list", false, "print the recognised symptoms and exit")
		catalogPath = fs.String("catalog", os.Getenv("CATALOG_PATH"), "alternative catalog YAML file")
		logLevel    = fs.String("log-level", "warn", "log level")
	)
	fs.Var(&selected, "select", "symptom picked from the list (repeatable or comma-separated)")
	if err := fs.Parse(args); err != nil {
		return exitInput
	}

	log, err := logger.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitError
	}
	defer func() { _ = log.Sync() }()

	cat, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Error("loading catalog failed", zap.String("path", *catalogPath), zap.Error(err))
		return exitError
	}
	lang := catalog.ParseLanguage(*langTag)

	if *list {
		printList(stdout, cat, lang)
		return exitOK
	}

	res, err := scorer.Analyze(cat.Symptoms, *freeText, selected)
	if err != nil {
		fmt.Fprintln(stderr, report.ErrorMessage(lang, err))
		if len(res.Unrecognized) > 0 {
			fmt.Fprintf(stderr, "%s: %s\n", report.UnrecognizedLabel(lang), strings.Join(res.Unrecognized, ", "))
		}
		if errors.Is(err, scorer.ErrNoSymptoms) || errors.Is(err, scorer.ErrNoMatches) {
			return exitInput
		}
		return exitError
	}

	rep := report.New(cat, lang, res)
	printResult(stdout, rep, res)

	if *reportPath != "" {
		if err := writeFile(*reportPath, rep.WriteText); err != nil {
			log.Error("writing report failed", zap.String("path", *reportPath), zap.Error(err))
			return exitError
		}
		log.Info("report written", zap.String("path", *reportPath))
	}
	if *chartPath != "" {
		if err := writeFile(*chartPath, rep.WriteChart); err != nil {
			log.Error("writing chart failed", zap.String("path", *chartPath), zap.Error(err))
			return exitError
		}
		log.Info("chart written", zap.String("path", *chartPath))
	}
	return exitOK
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func printList(w io.Writer, cat *catalog.Catalog, lang catalog.Language) {
	for _, key := range cat.Symptoms.Keys() {
		label := cat.Translations.Display(key, lang)
		if label == key {
			fmt.Fprintln(w, key)
			continue
		}
		fmt.Fprintf(w, "%s (%s)\n", key, label)
	}
}

func printResult(w io.Writer, rep report.Report, res scorer.Result) {
	fmt.Fprintln(w, report.Heading(rep.Language))
	for i, e := range rep.Entries {
		if i == scorer.PrimaryLimit {
			break
		}
		fmt.Fprintf(w, "%d. %s - %s\n", i+1, e.Label, e.Percent)
	}
	if len(res.Unrecognized) > 0 {
		fmt.Fprintf(w, "\n%s: %s\n", report.UnrecognizedLabel(rep.Language), strings.Join(res.Unrecognized, ", "))
	}
	fmt.Fprintf(w, "\n%s: %s\n\n%s\n", report.AdviceLabel(rep.Language), rep.Advice, report.Disclaimer(rep.Language))
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return write(f)
}
