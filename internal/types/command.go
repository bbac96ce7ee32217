package types

// Command is a subprocess invocation. Dir and Env apply to the child only.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

type CommandResult struct {
	Output   []byte
	ExitCode int
}
