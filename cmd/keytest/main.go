package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-musicbox/hal"
	"go-musicbox/midi"
	"go-musicbox/sequencer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "detect":
		detectLaunchpad()
	case "chase":
		chaseLaunchpad()
	case "mirror":
		if len(os.Args) < 3 {
			usage()
			return
		}
		chaseMirror(os.Args[2])
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("Key test scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list         - List all MIDI ports")
	fmt.Println("  detect       - Find Launchpad X")
	fmt.Println("  chase        - Run a light through the 32 key pads")
	fmt.Println("  mirror PORT  - Play every key as a note on PORT")
	fmt.Println("  poll         - Poll for device changes")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins, outs []string
	}
	ch := make(chan result, 1)
	go func() {
		ins, outs := midi.PortNames()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, name := range r.ins {
			fmt.Printf("  %d: %s\n", i, name)
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, name := range r.outs {
			fmt.Printf("  %d: %s\n", i, name)
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

func findLaunchpad() (drivers.In, drivers.Out) {
	var in drivers.In
	var out drivers.Out
	for _, p := range gomidi.GetInPorts() {
		if isLaunchpad(p.String()) {
			in = p
			break
		}
	}
	for _, p := range gomidi.GetOutPorts() {
		if isLaunchpad(p.String()) {
			out = p
			break
		}
	}
	return in, out
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

func detectLaunchpad() {
	fmt.Println("Looking for Launchpad X...")

	in, out := findLaunchpad()
	if in != nil {
		fmt.Printf("Found input: %s\n", in.String())
	}
	if out != nil {
		fmt.Printf("Found output: %s\n", out.String())
	}

	if in != nil && out != nil {
		fmt.Println("\nLaunchpad X detected!")
	} else {
		fmt.Println("\nLaunchpad X not found")
	}
}

func chaseLaunchpad() {
	in, out := findLaunchpad()
	if out == nil {
		fmt.Println("No Launchpad found")
		return
	}

	lp, err := midi.NewLaunchpadController(out.String(), in, out)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer lp.Close()

	fmt.Println("Chasing keys 0-31... press a top-row button to see it")
	go func() {
		for b := range lp.Buttons() {
			fmt.Printf("  button: %v\n", b)
		}
	}()

	for key := 0; key < sequencer.NumKeys; key++ {
		lp.ShowKeys(1 << key)
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()
	fmt.Println("Done!")
}

// chaseMirror drives the keys through a simulated board so each one sounds
// on the output port in turn
func chaseMirror(port string) {
	board := hal.NewSimBoard()
	mirror, err := midi.OpenKeyMirror(board, port, midi.DefaultMirrorConfig())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer mirror.Silence()

	keys := sequencer.NewKeys(mirror)
	for key := 0; key < sequencer.NumKeys; key++ {
		set := sequencer.KeysOf(key)
		keys.Activate(set)
		time.Sleep(150 * time.Millisecond)
		keys.Deactivate(set)
	}
	fmt.Println("Done!")
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect Launchpad to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		inNames, outNames := midi.PortNames()

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			// Check for Launchpad
			for _, name := range inNames {
				if isLaunchpad(name) {
					fmt.Println("  -> Launchpad detected!")
				}
			}

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
