// Opens a finished artifact with the platform viewer. Worker-side
// only, this shells out and may block for a while.
package preview

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/1F47E/go-inkwell/pkg/logger"
)

var log = logger.Log

// Open hands path to the OS default opener.
func Open(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	log.WithField("scope", "preview").Debugf("opening %s", path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cannot open %s in viewer: %w", path, err)
	}
	// detach, the viewer outlives us
	go func() { _ = cmd.Wait() }()
	return nil
}
