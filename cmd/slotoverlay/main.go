// Command slotoverlay draws a slot layout onto a camera frame so the layout
// can be checked against the camera resolution and field of view.
//
// Usage: slotoverlay -i frame.png [-s plazas.json | --db layouts.db --layout name] [-o overlay.png]
package main

import (
	"fmt"
	"os"
	"path/filepath"

	lotimage "parking-occupancy/internal/image"
	"parking-occupancy/internal/labels"
	"parking-occupancy/internal/layoutdb"
	"parking-occupancy/internal/overlay"
	"parking-occupancy/internal/roi"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
)

func main() {
	parser := argparse.NewParser("slotoverlay", "Draw a slot layout onto a camera frame")
	input := parser.String("i", "input", &argparse.Options{Help: "Camera frame", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Output image", Default: "overlay.png"})
	slotsFile := parser.String("s", "slots", &argparse.Options{Help: "Slot layout JSON file", Default: "plazas.json"})
	labelsFile := parser.String("l", "labels", &argparse.Options{Help: "Ground truth JSON file; colors slots by the input frame's labels", Default: ""})
	dbPath := parser.String("", "db", &argparse.Options{Help: "Read the layout (and labels) from this layout database", Default: ""})
	layoutName := parser.String("", "layout", &argparse.Options{Help: "Camera layout name inside the layout database", Default: ""})
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

	var slots roi.Store = roi.FileStore{Path: *slotsFile}
	var lbls labels.Store
	if *labelsFile != "" {
		lbls = labels.FileStore{Path: *labelsFile}
	}
	if *dbPath != "" {
		db, err := layoutdb.Open(*dbPath)
		if err != nil {
			fail(log, err)
		}
		defer db.Close()
		slots, lbls = db, db
	}

	layout, err := slots.Layout(*layoutName)
	if err != nil {
		fail(log, err)
	}

	frame, err := lotimage.Load(*input)
	if err != nil {
		fail(log, err)
	}
	defer frame.Close()
	log.Infof("Frame %s is %dx%d, layout %q has %d slots", frame.ID, frame.Width(), frame.Height(), layout.Name, layout.Len())

	var frameLabels []int
	if lbls != nil {
		ls, err := lbls.LabelSet(layout.Name)
		if err != nil {
			fail(log, err)
		}
		frameLabels = ls[filepath.Base(*input)]
		if frameLabels == nil {
			log.Warnf("No labels for %s", filepath.Base(*input))
		}
	}

	out, outside, err := overlay.Draw(frame.Mat, layout.Slots, frameLabels)
	if err != nil {
		fail(log, err)
	}
	defer out.Close()
	for _, i := range outside {
		log.Warnf("Slot %d %v does not fit in the %dx%d frame", i+1, layout.Slots[i], frame.Width(), frame.Height())
	}

	if err := overlay.Save(*output, out); err != nil {
		fail(log, err)
	}
	log.Infof("Wrote %s", *output)
}

func fail(log logs.Log, err error) {
	log.Criticalf("%v", err)
	log.Close()
	os.Exit(1)
}
