//go:build windows

package presenter

func shutdownCommand() (string, []string) {
	return "shutdown", []string{"/s", "/f", "/t", "0"}
}
