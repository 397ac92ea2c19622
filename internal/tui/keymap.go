package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap holds the chart bindings.
type keyMap struct {
	quit        key.Binding
	reload      key.Binding
	toggleHelp  key.Binding
	focusNext   key.Binding
	focusPrev   key.Binding
	scrollLeft  key.Binding
	scrollRight key.Binding
	pageUp      key.Binding
	pageDown    key.Binding
	selectBar   key.Binding
	deleteBar   key.Binding
	moveEarlier key.Binding
	moveLater   key.Binding
	progressDec key.Binding
	progressInc key.Binding
	collapse    key.Binding
	link        key.Binding
	search      key.Binding
	copyTask    key.Binding
	viewMode    key.Binding
	taskInfo    key.Binding
	report      key.Binding
	cancel      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		focusNext:   key.NewBinding(key.WithKeys("j", "down", "tab"), key.WithHelp("j/↓", "next task")),
		focusPrev:   key.NewBinding(key.WithKeys("k", "up", "shift+tab"), key.WithHelp("k/↑", "previous task")),
		scrollLeft:  key.NewBinding(key.WithKeys("left", "H"), key.WithHelp("←/H", "scroll left")),
		scrollRight: key.NewBinding(key.WithKeys("right", "L"), key.WithHelp("→/L", "scroll right")),
		pageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "rows up")),
		pageDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "rows down")),
		selectBar:   key.NewBinding(key.WithKeys("enter", "space"), key.WithHelp("enter", "select chain")),
		deleteBar:   key.NewBinding(key.WithKeys("delete", "x"), key.WithHelp("del/x", "delete task")),
		moveEarlier: key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "move earlier")),
		moveLater:   key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "move later")),
		progressDec: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "progress -10%")),
		progressInc: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "progress +10%")),
		collapse:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "collapse project")),
		link:        key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "link dependency")),
		search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		copyTask:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy task")),
		viewMode:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view mode")),
		taskInfo:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "task info")),
		report:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "schedule report")),
		cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp returns the footer bindings.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.focusNext, k.selectBar, k.link, k.search, k.viewMode, k.report, k.toggleHelp, k.quit,
	}
}

// FullHelp returns the expanded help columns.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.focusNext, k.focusPrev, k.scrollLeft, k.scrollRight, k.pageUp, k.pageDown},
		{k.selectBar, k.moveEarlier, k.moveLater, k.progressDec, k.progressInc, k.collapse, k.deleteBar},
		{k.link, k.search, k.copyTask, k.viewMode, k.taskInfo, k.report, k.reload, k.toggleHelp, k.quit},
	}
}

// KeyConfig overrides the rebindable keys. Blank fields keep the defaults.
type KeyConfig struct {
	Search   string
	Copy     string
	Link     string
	ViewMode string
}

func (k *keyMap) apply(cfg KeyConfig) {
	configureBinding(&k.search, cfg.Search, "/", "search")
	configureBinding(&k.copyTask, cfg.Copy, "y", "copy task")
	configureBinding(&k.link, cfg.Link, "l", "link dependency")
	configureBinding(&k.viewMode, cfg.ViewMode, "v", "view mode")
}

// configureBinding rebinds b to raw, or to fallback when raw is blank.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys maps a configured key to the matcher strings bubbletea
// reports for it.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if strings.EqualFold(raw, "space") || raw == " " {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}
