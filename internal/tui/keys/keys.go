package keys

import "github.com/charmbracelet/bubbles/key"

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// TerminalKeys are the bindings of the data view shared by listen and
// connect.
type TerminalKeys struct {
	Quit             key.Binding
	Help             key.Binding
	Clear            key.Binding
	Pause            key.Binding
	ToggleHex        key.Binding
	ToggleASCII      key.Binding
	ToggleTimestamps key.Binding
	ToggleIndicators key.Binding
}

func NewTerminalKeys() TerminalKeys {
	return TerminalKeys{
		Quit:             bind("q/ctrl+c", "quit", "q", "Q", "ctrl+c"),
		Help:             bind("?", "toggle help", "?"),
		Clear:            bind("c", "clear buffer", "c"),
		Pause:            bind("p/space", "pause polling", "p", " "),
		ToggleHex:        bind("h", "toggle hex", "h"),
		ToggleASCII:      bind("a", "toggle ascii", "a"),
		ToggleTimestamps: bind("t", "toggle timestamps", "t"),
		ToggleIndicators: bind("r", "toggle rx marker", "r"),
	}
}

func (k TerminalKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Pause, k.Clear, k.Quit}
}

func (k TerminalKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Clear, k.ToggleHex, k.ToggleASCII},
		{k.ToggleTimestamps, k.ToggleIndicators},
		{k.Help, k.Quit},
	}
}

// ConnectKeys add the send field to the data view. Insert-mode bindings are
// only matched while the field has focus.
type ConnectKeys struct {
	TerminalKeys
	Insert         key.Binding
	Escape         key.Binding
	Enter          key.Binding
	ToggleSendMode key.Binding
	Up             key.Binding
	Down           key.Binding
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		TerminalKeys:   NewTerminalKeys(),
		Insert:         bind("i", "type message", "i"),
		Escape:         bind("esc", "stop typing", "esc"),
		Enter:          bind("enter", "send message", "enter"),
		ToggleSendMode: bind("tab", "toggle ascii/hex", "tab"),
		Up:             bind("↑", "previous message", "up"),
		Down:           bind("↓", "next message", "down"),
	}
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Insert, k.Enter, k.Quit}
}

func (k ConnectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Insert, k.Escape, k.Enter, k.ToggleSendMode},
		{k.Up, k.Down, k.Pause, k.Clear},
		{k.ToggleHex, k.ToggleASCII, k.ToggleTimestamps, k.ToggleIndicators},
		{k.Help, k.Quit},
	}
}
