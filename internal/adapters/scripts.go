package adapters

import _ "embed"

//go:embed scripts/pep517_hook.py
var pep517HookScript []byte

//go:embed scripts/setup_shim.py
var setupShimScript []byte

// setupShimNameErrorExit is the shim's exit status when setup.py raised
// NameError and must be rerun as a plain subprocess.
const setupShimNameErrorExit = 3
