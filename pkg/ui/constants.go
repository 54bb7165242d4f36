package ui

// Pane titles
const (
	TitleServices  = "Services"
	TitlePorts     = "Ports"
	TitleNamespace = "Namespace"
)

// Numeric constants for layout
const (
	ServicesPanePercent = 60 // share of the width given to the services pane
	FooterHeight        = 4  // help line, namespace box and message line
	MinPaneHeight       = 3
	MinPaneWidth        = 12
)

// Lipgloss colors
const (
	ColorBorder    = "240"
	ColorTitle     = "14"  // cyan
	ColorHelp      = "245" // grey
	ColorError     = "9"   // red
	ColorStatus    = "10"  // green
	ColorCursor    = "11"  // yellow
	ColorNamespace = "14"
)
