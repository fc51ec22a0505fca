package hotkey

import "golang.design/x/hotkey"

var xMods = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.ModAlt,
	"super": hotkey.ModWin,
}
