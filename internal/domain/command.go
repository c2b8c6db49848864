package domain

// ExecCommand is an external command to run, usually a gate check.
type ExecCommand struct {
	Program string
	Dir     string
	Args    []string
	// Env is appended to the current process environment.
	Env []string
}

// NewShellCommand creates an ExecCommand that runs command with sh -c in dir.
func NewShellCommand(command, dir string) *ExecCommand {
	return &ExecCommand{
		Program: "sh",
		Args:    []string{"-c", command},
		Dir:     dir,
	}
}

// GateEnv returns the environment gate commands run with.
func GateEnv(wuID, dir string) []string {
	env := []string{"LUMENFLOW_ROOT=" + dir}
	if wuID != "" {
		env = append(env, "LUMENFLOW_WU_ID="+wuID)
	}
	return env
}
