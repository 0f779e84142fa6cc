package slave

// Opcode identifies the request a master sends after the handshake.
type Opcode byte

const (
	OpShutdown         Opcode = 0
	OpEvaluateSimple   Opcode = 1
	OpEvaluateGrouped  Opcode = 2
	OpCheckpoint       Opcode = 3
)

// ResultKind tags the body of one evaluation result.
type ResultKind byte

const (
	ResultNothing    ResultKind = 0
	ResultIndividual ResultKind = 1
	ResultFitness    ResultKind = 2
)
