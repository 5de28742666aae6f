// Command layoutdb moves slot layouts and ground truth between the JSON files
// written by the annotation tools and the SQLite layout database.
//
// Usage:
//
//	layoutdb import --db layouts.db --layout north -s plazas.json [-l ground_truth.json]
//	layoutdb export --db layouts.db --layout north -s plazas.json [-l ground_truth.json]
//	layoutdb list --db layouts.db
package main

import (
	"fmt"
	"os"

	"parking-occupancy/internal/labels"
	"parking-occupancy/internal/layoutdb"
	"parking-occupancy/internal/roi"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
)

func main() {
	parser := argparse.NewParser("layoutdb", "Import and export slot layouts and labels")

	importCmd := parser.NewCommand("import", "Load JSON files into the database")
	importDB := importCmd.String("", "db", &argparse.Options{Help: "Layout database", Required: true})
	importName := importCmd.String("", "layout", &argparse.Options{Help: "Camera layout name", Required: true})
	importSlots := importCmd.String("s", "slots", &argparse.Options{Help: "Slot layout JSON file", Default: "plazas.json"})
	importLabels := importCmd.String("l", "labels", &argparse.Options{Help: "Ground truth JSON file", Default: ""})

	exportCmd := parser.NewCommand("export", "Write a layout from the database to JSON files")
	exportDB := exportCmd.String("", "db", &argparse.Options{Help: "Layout database", Required: true})
	exportName := exportCmd.String("", "layout", &argparse.Options{Help: "Camera layout name", Required: true})
	exportSlots := exportCmd.String("s", "slots", &argparse.Options{Help: "Slot layout JSON file", Default: "plazas.json"})
	exportLabels := exportCmd.String("l", "labels", &argparse.Options{Help: "Ground truth JSON file", Default: ""})

	listCmd := parser.NewCommand("list", "List the layouts in the database")
	listDB := listCmd.String("", "db", &argparse.Options{Help: "Layout database", Required: true})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	log, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	switch {
	case importCmd.Happened():
		err = runImport(log, *importDB, *importName, *importSlots, *importLabels)
	case exportCmd.Happened():
		err = runExport(log, *exportDB, *exportName, *exportSlots, *exportLabels)
	case listCmd.Happened():
		err = runList(*listDB)
	}
	if err != nil {
		log.Criticalf("%v", err)
		log.Close()
		os.Exit(1)
	}
}

func runImport(log logs.Log, dbPath, name, slotsFile, labelsFile string) error {
	db, err := layoutdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	layout, err := roi.Load(slotsFile)
	if err != nil {
		return err
	}
	if err := db.PutLayout(name, layout.Slots); err != nil {
		return fmt.Errorf("failed to store layout: %w", err)
	}
	log.Infof("Imported %d slots into layout %q", layout.Len(), name)

	if labelsFile == "" {
		return nil
	}
	ls, err := labels.Load(labelsFile)
	if err != nil {
		return err
	}
	if err := db.PutLabelSet(name, ls); err != nil {
		return fmt.Errorf("failed to store labels: %w", err)
	}
	log.Infof("Imported labels for %d frames into layout %q", len(ls), name)
	return nil
}

func runExport(log logs.Log, dbPath, name, slotsFile, labelsFile string) error {
	db, err := layoutdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	layout, err := db.Layout(name)
	if err != nil {
		return err
	}
	if err := layout.Save(slotsFile); err != nil {
		return err
	}
	log.Infof("Exported %d slots to %s", layout.Len(), slotsFile)

	if labelsFile == "" {
		return nil
	}
	ls, err := db.LabelSet(name)
	if err != nil {
		return err
	}
	if err := ls.Save(labelsFile); err != nil {
		return err
	}
	log.Infof("Exported labels for %d frames to %s", len(ls), labelsFile)
	return nil
}

func runList(dbPath string) error {
	db, err := layoutdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	names, err := db.Layouts()
	if err != nil {
		return err
	}
	for _, name := range names {
		l, err := db.Layout(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%d slots\n", name, l.Len())
	}
	return nil
}
