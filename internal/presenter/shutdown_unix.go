//go:build !windows

package presenter

func shutdownCommand() (string, []string) {
	return "shutdown", []string{"-h", "now"}
}
