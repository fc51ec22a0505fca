//go:build linux

package hotkey

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// findDevices lists /dev/input/event* nodes whose key capability bitmap has
// every bit in need.
func findDevices(need ...uint16) ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		data, err := os.ReadFile(filepath.Join("/sys/class/input", e.Name(), "device", "capabilities", "key"))
		if err != nil {
			continue
		}
		caps := strings.TrimSpace(string(data))
		ok := true
		for _, bit := range need {
			if !hasCapBit(caps, bit) {
				ok = false
				break
			}
		}
		if ok {
			paths = append(paths, filepath.Join("/dev/input", e.Name()))
		}
	}
	return paths, nil
}

func openDevices(paths []string, kind string) ([]*os.File, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s devices found (is user in 'input' group?)", kind)
	}
	var files []*os.File
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("could not open any %s device (run: sudo usermod -aG input $USER, then re-login)", kind)
	}
	return files, nil
}

// readDevice decodes events from f until it is closed.
func readDevice(f *os.File, handle func(inputEvent)) {
	buf := make([]byte, inputEventSize*16)
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for _, ev := range decodeEvents(buf[:n]) {
			handle(ev)
		}
	}
}

// Diagnose reports whether keyboards can be read.
func Diagnose() (string, error) {
	keyboards, err := findDevices(evdevKeys["a"], evdevKeys["space"])
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	files, err := openDevices(keyboards, "keyboard")
	if err != nil {
		return "", err
	}
	for _, f := range files {
		f.Close()
	}
	return fmt.Sprintf("%d keyboard(s) found, %d readable", len(keyboards), len(files)), nil
}
