package types

type Stage string

const (
	StageInit                  Stage = "INIT"
	StageConfigParsed          Stage = "CONFIG_PARSED"
	StageBackendDescriptorRead Stage = "BACKEND_DESCRIPTOR_READ"
	StageWheelBuilt            Stage = "WHEEL_BUILT"
	StageSdistBuilt            Stage = "SDIST_BUILT"
	StageBuildFailed           Stage = "BUILD_FAILED"
	StageMetadataProbed        Stage = "METADATA_PROBED"
	StageLegacyScriptRun       Stage = "LEGACY_SCRIPT_RUN"
	StageMetadataReprobed      Stage = "METADATA_REPROBED"
	StageDone                  Stage = "DONE"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeMiss    Outcome = "miss"
	OutcomeFatal   Outcome = "fatal"
)

// StageResult is the tagged result of one resolution stage.
type StageResult struct {
	Outcome Outcome
	Partial PartialMetadata
	Err     error
}

func Success(partial PartialMetadata) StageResult {
	return StageResult{Outcome: OutcomeSuccess, Partial: partial}
}

// Miss records that a stage contributed nothing. The error, when given,
// is kept for logging only.
func Miss(err error) StageResult {
	return StageResult{Outcome: OutcomeMiss, Err: err}
}

func Fatal(err error) StageResult {
	return StageResult{Outcome: OutcomeFatal, Err: err}
}
