//go:build !linux && !darwin

package sqlplus

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
