// Command catalog checks card catalog files and emits their JSON Schema.
//
//	catalog validate [-file cards.json]
//	catalog schema [-out schema.json]
//	catalog csv [-file cards.json] [-out card_list.csv]
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/kubeclash/clash-server-go/internal/game/catalog"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "validate":
		err = validate(os.Args[2:])
	case "schema":
		err = schema(os.Args[2:])
	case "csv":
		err = exportCSV(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: catalog validate [-file path] | catalog schema [-out path] | catalog csv [-file path] [-out path]")
}

func validate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	file := fs.String("file", "", "catalog file; empty checks the built-in catalog")
	_ = fs.Parse(args)

	cat, err := load(*file)
	if err != nil {
		return err
	}

	counts := make(map[catalog.CardType]int)
	for _, c := range cat.Cards() {
		counts[c.Type]++
	}
	fmt.Printf("catalog %s: %d definitions, %d cards\n", cat.Version(), len(cat.Cards()), cat.Size())
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-14s %d\n", t, counts[catalog.CardType(t)])
	}
	return nil
}

func schema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	out := fs.String("out", "", "write to this file instead of stdout")
	_ = fs.Parse(args)

	data, err := json.MarshalIndent(catalog.Schema(), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

// exportCSV writes the printable card list, one row per catalog entry.
func exportCSV(args []string) error {
	fs := flag.NewFlagSet("csv", flag.ExitOnError)
	file := fs.String("file", "", "catalog file; empty exports the built-in catalog")
	out := fs.String("out", "", "write to this file instead of stdout")
	_ = fs.Parse(args)

	cat, err := load(*file)
	if err != nil {
		return err
	}

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}

	w := csv.NewWriter(dst)
	if err := w.Write([]string{"name", "type", "cost", "slo", "quantity", "prerequisite", "effect", "repair"}); err != nil {
		return err
	}
	for _, c := range cat.Cards() {
		repair := ""
		if c.Type.IsPersistent() {
			repair = strconv.Itoa(c.Repair())
		}
		record := []string{
			c.Name,
			string(c.Type),
			strconv.Itoa(c.Cost),
			strconv.Itoa(c.SLO),
			strconv.Itoa(c.Quantity),
			c.Prerequisite.String(),
			c.Text,
			repair,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func load(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}
