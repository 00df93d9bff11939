package config

// DefaultSuffixRules returns the built-in app -> title suffix table. The
// suffix is stripped from the end of every window title of that app.
func DefaultSuffixRules() map[string]string {
	return map[string]string{
		// Browsers
		"chrome.exe": " - Google Chrome",

		// Editors
		"Notepad3.exe": " - Notepad3",
		"Code.exe":     " - Visual Studio Code",
	}
}

// DefaultEditorApps returns the apps whose titles carry a
// "(Working Tree) (...)" source-control marker.
func DefaultEditorApps() []string {
	return []string{
		"Code.exe",
		"code",
	}
}
