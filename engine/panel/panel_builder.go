package panel

import "go.uber.org/zap"

// ControlPanelBuilderOption is a functional option for configuring a controlPanel.
type ControlPanelBuilderOption func(*controlPanel)

// WithLogger sets the logger used to report click edges.
//
// Parameters:
//   - logger: the zap logger (nil keeps the no-op logger)
//
// Returns:
//   - ControlPanelBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) ControlPanelBuilderOption {
	return func(p *controlPanel) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithVisible sets the initial overlay visibility.
//
// Parameters:
//   - visible: true to draw the overlay from the first frame
//
// Returns:
//   - ControlPanelBuilderOption: option function to apply
func WithVisible(visible bool) ControlPanelBuilderOption {
	return func(p *controlPanel) {
		p.overlayVisible = visible
	}
}

// WithTitle sets the panel heading.
//
// Parameters:
//   - title: the first row of the panel
//
// Returns:
//   - ControlPanelBuilderOption: option function to apply
func WithTitle(title string) ControlPanelBuilderOption {
	return func(p *controlPanel) {
		p.title = title
	}
}
