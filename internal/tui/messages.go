package tui

// Messages shared between the root model and more than one screen. Messages
// a single screen produces and consumes stay in that screen's file.

// SwitchScreenMsg asks the root model to change the active screen, e.g. the
// dashboard jumping to the timer.
type SwitchScreenMsg struct {
	Screen Screen
}

// RefreshDataMsg is delivered to a screen when it is revisited, so lists
// pick up entries logged, invoices generated, or clients edited elsewhere.
type RefreshDataMsg struct{}

// ErrorMsg surfaces a screen's error in the root frame
type ErrorMsg struct {
	Err error
}

// OpenNewClientFormMsg tells the clients screen to open its create form;
// the first-run check sends it when the database has no clients yet.
type OpenNewClientFormMsg struct{}

// firstRunCheckMsg reports whether any clients exist, driving the
// first-run jump into client creation
type firstRunCheckMsg struct {
	hasClients bool
}
