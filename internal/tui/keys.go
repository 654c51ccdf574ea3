package tui

import "github.com/charmbracelet/bubbles/key"

// DashboardKeyMap holds the bindings shared by every tab.
type DashboardKeyMap struct {
	Tabs key.Binding
	Quit key.Binding
}

// DownloadKeyMap holds the bindings of the Download tab.
type DownloadKeyMap struct {
	Add     key.Binding
	Abandon key.Binding
	Dismiss key.Binding
	DashboardKeyMap
}

// HistoryKeyMap holds the bindings of the History tab.
type HistoryKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Refresh key.Binding
	Export  key.Binding
	Clear   key.Binding
	DashboardKeyMap
}

// SettingsKeyMap holds the bindings of the Settings tab.
type SettingsKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Cycle  key.Binding
	Edit   key.Binding
	Browse key.Binding
	DashboardKeyMap
}

// InputKeyMap holds the bindings of the Add Download popup.
type InputKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Cycle  key.Binding
	Submit key.Binding
	Cancel key.Binding
}

// EditKeyMap holds the bindings used while editing a text setting.
type EditKeyMap struct {
	Save   key.Binding
	Cancel key.Binding
}

var dashboardKeys = DashboardKeyMap{
	Tabs: key.NewBinding(key.WithKeys("q", "w", "e"), key.WithHelp("q/w/e", "tabs")),
	Quit: key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("ctrl+q", "quit")),
}

// DownloadKeys are the Download tab bindings.
var DownloadKeys = DownloadKeyMap{
	Add:             key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Abandon:         key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop watching")),
	Dismiss:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "dismiss")),
	DashboardKeyMap: dashboardKeys,
}

// HistoryKeys are the History tab bindings.
var HistoryKeys = HistoryKeyMap{
	Up:              key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:            key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:            key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("o", "open")),
	Refresh:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Export:          key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save export")),
	Clear:           key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	DashboardKeyMap: dashboardKeys,
}

// SettingsKeys are the Settings tab bindings.
var SettingsKeys = SettingsKeyMap{
	Up:              key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:            key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Cycle:           key.NewBinding(key.WithKeys("left", "right", "h", "l"), key.WithHelp("←/→", "change")),
	Edit:            key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
	Browse:          key.NewBinding(key.WithKeys("tab", "b"), key.WithHelp("tab", "browse")),
	DashboardKeyMap: dashboardKeys,
}

// InputKeys are the Add Download popup bindings.
var InputKeys = InputKeyMap{
	Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev")),
	Cycle:  key.NewBinding(key.WithKeys("left", "right"), key.WithHelp("←/→", "change")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

// EditKeys are the text editing bindings.
var EditKeys = EditKeyMap{
	Save:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
	Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

func (k DownloadKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Abandon, k.Dismiss, k.Tabs, k.Quit}
}

func (k DownloadKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Refresh, k.Export, k.Clear, k.Tabs, k.Quit}
}

func (k HistoryKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func (k SettingsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Cycle, k.Edit, k.Browse, k.Tabs, k.Quit}
}

func (k SettingsKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func (k InputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Cycle, k.Submit, k.Cancel}
}

func (k InputKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func (k EditKeyMap) ShortHelp() []key.Binding { return []key.Binding{k.Save, k.Cancel} }

func (k EditKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
