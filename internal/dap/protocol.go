package dap

import (
	"encoding/json"
)

// ProtocolMessage is the base for all DAP messages.
type ProtocolMessage struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"` // "request", "response", "event"
}

// Request represents a DAP request.
type Request struct {
	ProtocolMessage
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response represents a DAP response.
type Response struct {
	ProtocolMessage
	RequestSeq int             `json:"request_seq"`
	Success    bool            `json:"success"`
	Command    string          `json:"command"`
	Message    string          `json:"message,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Event represents a DAP event.
type Event struct {
	ProtocolMessage
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// ErrorMessage contains structured error details from a failed response.
type ErrorMessage struct {
	ID        int               `json:"id"`
	Format    string            `json:"format"`
	Variables map[string]string `json:"variables,omitempty"`
}

// Capabilities describes what features the debug adapter supports.
// Only the capabilities stormdbg consults are modeled; unknown fields
// from the adapter are ignored during decoding.
type Capabilities struct {
	SupportsConfigurationDoneRequest   bool `json:"supportsConfigurationDoneRequest,omitempty"`
	SupportsFunctionBreakpoints        bool `json:"supportsFunctionBreakpoints,omitempty"`
	SupportsConditionalBreakpoints     bool `json:"supportsConditionalBreakpoints,omitempty"`
	SupportsHitConditionalBreakpoints  bool `json:"supportsHitConditionalBreakpoints,omitempty"`
	SupportsEvaluateForHovers          bool `json:"supportsEvaluateForHovers,omitempty"`
	SupportsSetVariable                bool `json:"supportsSetVariable,omitempty"`
	SupportsRestartRequest             bool `json:"supportsRestartRequest,omitempty"`
	SupportsExceptionInfoRequest       bool `json:"supportsExceptionInfoRequest,omitempty"`
	SupportTerminateDebuggee           bool `json:"supportTerminateDebuggee,omitempty"`
	SupportsDelayedStackTraceLoading   bool `json:"supportsDelayedStackTraceLoading,omitempty"`
	SupportsLoadedSourcesRequest       bool `json:"supportsLoadedSourcesRequest,omitempty"`
	SupportsTerminateRequest           bool `json:"supportsTerminateRequest,omitempty"`
	SupportsReadMemoryRequest          bool `json:"supportsReadMemoryRequest,omitempty"`
	SupportsWriteMemoryRequest         bool `json:"supportsWriteMemoryRequest,omitempty"`
	SupportsDisassembleRequest         bool `json:"supportsDisassembleRequest,omitempty"`
	SupportsBreakpointLocationsRequest bool `json:"supportsBreakpointLocationsRequest,omitempty"`
	SupportsSteppingGranularity        bool `json:"supportsSteppingGranularity,omitempty"`
	SupportsInstructionBreakpoints     bool `json:"supportsInstructionBreakpoints,omitempty"`
}

// InitializeRequestArguments are the arguments for the initialize request.
type InitializeRequestArguments struct {
	ClientID                 string `json:"clientID,omitempty"`
	ClientName               string `json:"clientName,omitempty"`
	AdapterID                string `json:"adapterID"`
	Locale                   string `json:"locale,omitempty"`
	LinesStartAt1            bool   `json:"linesStartAt1,omitempty"`
	ColumnsStartAt1          bool   `json:"columnsStartAt1,omitempty"`
	PathFormat               string `json:"pathFormat,omitempty"`
	SupportsVariableType     bool   `json:"supportsVariableType,omitempty"`
	SupportsMemoryReferences bool   `json:"supportsMemoryReferences,omitempty"`
	SupportsMemoryEvent      bool   `json:"supportsMemoryEvent,omitempty"`
}

// DisconnectArguments are the arguments for disconnect.
type DisconnectArguments struct {
	Restart           bool `json:"restart,omitempty"`
	TerminateDebuggee bool `json:"terminateDebuggee,omitempty"`
	SuspendDebuggee   bool `json:"suspendDebuggee,omitempty"`
}

// TerminateArguments are the arguments for terminate.
type TerminateArguments struct {
	Restart bool `json:"restart,omitempty"`
}

// RestartArguments are the arguments for restart.
type RestartArguments struct {
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Source represents a source file.
type Source struct {
	Name             string   `json:"name,omitempty"`
	Path             string   `json:"path,omitempty"`
	SourceReference  int      `json:"sourceReference,omitempty"`
	PresentationHint string   `json:"presentationHint,omitempty"`
	Origin           string   `json:"origin,omitempty"`
	Sources          []Source `json:"sources,omitempty"`
	Checksums        []Checksum `json:"checksums,omitempty"`
}

// Checksum represents a checksum for source verification.
type Checksum struct {
	Algorithm string `json:"algorithm"` // "MD5", "SHA1", "SHA256", "timestamp"
	Checksum  string `json:"checksum"`
}

// SourceBreakpoint represents a breakpoint in source.
type SourceBreakpoint struct {
	Line         int    `json:"line"`
	Column       int    `json:"column,omitempty"`
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
	LogMessage   string `json:"logMessage,omitempty"`
}

// FunctionBreakpoint represents a function breakpoint.
type FunctionBreakpoint struct {
	Name         string `json:"name"`
	Condition    string `json:"condition,omitempty"`
	HitCondition string `json:"hitCondition,omitempty"`
}

// Breakpoint represents a verified breakpoint.
type Breakpoint struct {
	ID                   int     `json:"id,omitempty"`
	Verified             bool    `json:"verified"`
	Message              string  `json:"message,omitempty"`
	Source               *Source `json:"source,omitempty"`
	Line                 int     `json:"line,omitempty"`
	Column               int     `json:"column,omitempty"`
	EndLine              int     `json:"endLine,omitempty"`
	EndColumn            int     `json:"endColumn,omitempty"`
	InstructionReference string  `json:"instructionReference,omitempty"`
	Offset               int     `json:"offset,omitempty"`
}

// SetBreakpointsArguments are the arguments for setBreakpoints.
type SetBreakpointsArguments struct {
	Source         Source             `json:"source"`
	Breakpoints    []SourceBreakpoint `json:"breakpoints,omitempty"`
	SourceModified bool               `json:"sourceModified,omitempty"`
}

// SetBreakpointsResponseBody is the response body for setBreakpoints.
type SetBreakpointsResponseBody struct {
	Breakpoints []Breakpoint `json:"breakpoints"`
}

// SetFunctionBreakpointsArguments are the arguments for setFunctionBreakpoints.
type SetFunctionBreakpointsArguments struct {
	Breakpoints []FunctionBreakpoint `json:"breakpoints"`
}

// SetExceptionBreakpointsArguments are the arguments for setExceptionBreakpoints.
type SetExceptionBreakpointsArguments struct {
	Filters []string `json:"filters"`
}

// BreakpointLocationsArguments are the arguments for breakpointLocations.
type BreakpointLocationsArguments struct {
	Source  Source `json:"source"`
	Line    int    `json:"line"`
	EndLine int    `json:"endLine,omitempty"`
}

// BreakpointLocation is a possible breakpoint position in a source file.
type BreakpointLocation struct {
	Line      int `json:"line"`
	Column    int `json:"column,omitempty"`
	EndLine   int `json:"endLine,omitempty"`
	EndColumn int `json:"endColumn,omitempty"`
}

// BreakpointLocationsResponseBody is the response body for breakpointLocations.
type BreakpointLocationsResponseBody struct {
	Breakpoints []BreakpointLocation `json:"breakpoints"`
}

// ContinueArguments are the arguments for continue.
type ContinueArguments struct {
	ThreadID     int  `json:"threadId"`
	SingleThread bool `json:"singleThread,omitempty"`
}

// ContinueResponseBody is the response body for continue.
type ContinueResponseBody struct {
	AllThreadsContinued bool `json:"allThreadsContinued,omitempty"`
}

// NextArguments are the arguments for next (step over).
type NextArguments struct {
	ThreadID     int    `json:"threadId"`
	SingleThread bool   `json:"singleThread,omitempty"`
	Granularity  string `json:"granularity,omitempty"` // "statement", "line", "instruction"
}

// StepInArguments are the arguments for stepIn.
type StepInArguments struct {
	ThreadID     int    `json:"threadId"`
	SingleThread bool   `json:"singleThread,omitempty"`
	TargetID     int    `json:"targetId,omitempty"`
	Granularity  string `json:"granularity,omitempty"`
}

// StepOutArguments are the arguments for stepOut.
type StepOutArguments struct {
	ThreadID     int    `json:"threadId"`
	SingleThread bool   `json:"singleThread,omitempty"`
	Granularity  string `json:"granularity,omitempty"`
}

// PauseArguments are the arguments for pause.
type PauseArguments struct {
	ThreadID int `json:"threadId"`
}

// Thread represents a thread.
type Thread struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ThreadsResponseBody is the response body for threads.
type ThreadsResponseBody struct {
	Threads []Thread `json:"threads"`
}

// StackTraceArguments are the arguments for stackTrace.
type StackTraceArguments struct {
	ThreadID   int `json:"threadId"`
	StartFrame int `json:"startFrame,omitempty"`
	Levels     int `json:"levels,omitempty"`
}

// StackFrame represents a stack frame.
type StackFrame struct {
	ID                          int     `json:"id"`
	Name                        string  `json:"name"`
	Source                      *Source `json:"source,omitempty"`
	Line                        int     `json:"line"`
	Column                      int     `json:"column"`
	EndLine                     int     `json:"endLine,omitempty"`
	EndColumn                   int     `json:"endColumn,omitempty"`
	InstructionPointerReference string  `json:"instructionPointerReference,omitempty"`
	PresentationHint            string  `json:"presentationHint,omitempty"`
}

// StackTraceResponseBody is the response body for stackTrace.
type StackTraceResponseBody struct {
	StackFrames []StackFrame `json:"stackFrames"`
	TotalFrames int          `json:"totalFrames,omitempty"`
}

// ScopesArguments are the arguments for scopes.
type ScopesArguments struct {
	FrameID int `json:"frameId"`
}

// Scope represents a variable scope.
type Scope struct {
	Name               string `json:"name"`
	PresentationHint   string `json:"presentationHint,omitempty"`
	VariablesReference int    `json:"variablesReference"`
	NamedVariables     int    `json:"namedVariables,omitempty"`
	IndexedVariables   int    `json:"indexedVariables,omitempty"`
	Expensive          bool   `json:"expensive"`
}

// ScopesResponseBody is the response body for scopes.
type ScopesResponseBody struct {
	Scopes []Scope `json:"scopes"`
}

// VariablesArguments are the arguments for variables.
type VariablesArguments struct {
	VariablesReference int    `json:"variablesReference"`
	Filter             string `json:"filter,omitempty"` // "indexed", "named"
	Start              int    `json:"start,omitempty"`
	Count              int    `json:"count,omitempty"`
}

// Variable represents a variable or field.
type Variable struct {
	Name               string                    `json:"name"`
	Value              string                    `json:"value"`
	Type               string                    `json:"type,omitempty"`
	PresentationHint   *VariablePresentationHint `json:"presentationHint,omitempty"`
	EvaluateName       string                    `json:"evaluateName,omitempty"`
	VariablesReference int                       `json:"variablesReference"`
	NamedVariables     int                       `json:"namedVariables,omitempty"`
	IndexedVariables   int                       `json:"indexedVariables,omitempty"`
	MemoryReference    string                    `json:"memoryReference,omitempty"`
}

// VariablePresentationHint provides rendering hints for variables.
type VariablePresentationHint struct {
	Kind       string   `json:"kind,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Visibility string   `json:"visibility,omitempty"`
	Lazy       bool     `json:"lazy,omitempty"`
}

// VariablesResponseBody is the response body for variables.
type VariablesResponseBody struct {
	Variables []Variable `json:"variables"`
}

// SetVariableArguments are the arguments for setVariable.
type SetVariableArguments struct {
	VariablesReference int    `json:"variablesReference"`
	Name               string `json:"name"`
	Value              string `json:"value"`
}

// SetVariableResponseBody is the response body for setVariable.
type SetVariableResponseBody struct {
	Value              string `json:"value"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference,omitempty"`
}

// EvaluateArguments are the arguments for evaluate.
type EvaluateArguments struct {
	Expression string `json:"expression"`
	FrameID    int    `json:"frameId,omitempty"`
	Context    string `json:"context,omitempty"` // "watch", "repl", "hover", "clipboard"
}

// EvaluateResponseBody is the response body for evaluate.
type EvaluateResponseBody struct {
	Result             string `json:"result"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
	NamedVariables     int    `json:"namedVariables,omitempty"`
	IndexedVariables   int    `json:"indexedVariables,omitempty"`
	MemoryReference    string `json:"memoryReference,omitempty"`
}

// SourceArguments are the arguments for source.
type SourceArguments struct {
	Source          *Source `json:"source,omitempty"`
	SourceReference int     `json:"sourceReference"`
}

// SourceResponseBody is the response body for source.
type SourceResponseBody struct {
	Content  string `json:"content"`
	MimeType string `json:"mimeType,omitempty"`
}

// ReadMemoryArguments are the arguments for readMemory.
type ReadMemoryArguments struct {
	MemoryReference string `json:"memoryReference"`
	Offset          int64  `json:"offset,omitempty"`
	Count           int    `json:"count"`
}

// ReadMemoryResponseBody is the response body for readMemory.
// Data is base64-encoded; UnreadableBytes counts bytes at the end of
// the range the adapter could not read.
type ReadMemoryResponseBody struct {
	Address         string `json:"address"`
	UnreadableBytes int    `json:"unreadableBytes,omitempty"`
	Data            string `json:"data,omitempty"`
}

// WriteMemoryArguments are the arguments for writeMemory.
type WriteMemoryArguments struct {
	MemoryReference string `json:"memoryReference"`
	Offset          int64  `json:"offset,omitempty"`
	AllowPartial    bool   `json:"allowPartial,omitempty"`
	Data            string `json:"data"` // base64-encoded
}

// WriteMemoryResponseBody is the response body for writeMemory.
type WriteMemoryResponseBody struct {
	Offset       int64 `json:"offset,omitempty"`
	BytesWritten int   `json:"bytesWritten,omitempty"`
}

// DisassembleArguments are the arguments for disassemble.
type DisassembleArguments struct {
	MemoryReference   string `json:"memoryReference"`
	Offset            int64  `json:"offset,omitempty"`
	InstructionOffset int    `json:"instructionOffset,omitempty"`
	InstructionCount  int    `json:"instructionCount"`
	ResolveSymbols    bool   `json:"resolveSymbols,omitempty"`
}

// DisassembledInstruction is one instruction produced by disassemble.
type DisassembledInstruction struct {
	Address          string  `json:"address"`
	InstructionBytes string  `json:"instructionBytes,omitempty"`
	Instruction      string  `json:"instruction"`
	Symbol           string  `json:"symbol,omitempty"`
	Location         *Source `json:"location,omitempty"`
	Line             int     `json:"line,omitempty"`
	EndLine          int     `json:"endLine,omitempty"`
}

// DisassembleResponseBody is the response body for disassemble.
type DisassembleResponseBody struct {
	Instructions []DisassembledInstruction `json:"instructions"`
}

// ExceptionInfoArguments are the arguments for exceptionInfo.
type ExceptionInfoArguments struct {
	ThreadID int `json:"threadId"`
}

// ExceptionDetails holds detailed information about a thrown exception.
type ExceptionDetails struct {
	Message        string             `json:"message,omitempty"`
	TypeName       string             `json:"typeName,omitempty"`
	FullTypeName   string             `json:"fullTypeName,omitempty"`
	EvaluateName   string             `json:"evaluateName,omitempty"`
	StackTrace     string             `json:"stackTrace,omitempty"`
	InnerException []ExceptionDetails `json:"innerException,omitempty"`
}

// ExceptionInfoResponseBody is the response body for exceptionInfo.
type ExceptionInfoResponseBody struct {
	ExceptionID string            `json:"exceptionId"`
	Description string            `json:"description,omitempty"`
	BreakMode   string            `json:"breakMode"`
	Details     *ExceptionDetails `json:"details,omitempty"`
}

// LoadedSourcesResponseBody is the response body for loadedSources.
type LoadedSourcesResponseBody struct {
	Sources []Source `json:"sources"`
}

// StoppedEventBody is the body of the stopped event.
type StoppedEventBody struct {
	Reason            string `json:"reason"` // "step", "breakpoint", "exception", "pause", "entry", ...
	Description       string `json:"description,omitempty"`
	ThreadID          int    `json:"threadId,omitempty"`
	Text              string `json:"text,omitempty"`
	AllThreadsStopped bool   `json:"allThreadsStopped,omitempty"`
	HitBreakpointIDs  []int  `json:"hitBreakpointIds,omitempty"`
}

// ContinuedEventBody is the body of the continued event.
type ContinuedEventBody struct {
	ThreadID            int  `json:"threadId"`
	AllThreadsContinued bool `json:"allThreadsContinued,omitempty"`
}

// ExitedEventBody is the body of the exited event.
type ExitedEventBody struct {
	ExitCode int `json:"exitCode"`
}

// TerminatedEventBody is the body of the terminated event.
type TerminatedEventBody struct {
	Restart json.RawMessage `json:"restart,omitempty"`
}

// ThreadEventBody is the body of the thread event.
type ThreadEventBody struct {
	Reason   string `json:"reason"` // "started", "exited"
	ThreadID int    `json:"threadId"`
}

// OutputEventBody is the body of the output event.
type OutputEventBody struct {
	Category string  `json:"category,omitempty"` // "console", "important", "stdout", "stderr"
	Output   string  `json:"output"`
	Source   *Source `json:"source,omitempty"`
	Line     int     `json:"line,omitempty"`
}

// BreakpointEventBody is the body of the breakpoint event.
type BreakpointEventBody struct {
	Reason     string     `json:"reason"` // "changed", "new", "removed"
	Breakpoint Breakpoint `json:"breakpoint"`
}

// ProcessEventBody is the body of the process event.
type ProcessEventBody struct {
	Name            string `json:"name"`
	SystemProcessID int    `json:"systemProcessId,omitempty"`
	IsLocalProcess  bool   `json:"isLocalProcess,omitempty"`
	StartMethod     string `json:"startMethod,omitempty"`
	PointerSize     int    `json:"pointerSize,omitempty"`
}

// CapabilitiesEventBody is the body of the capabilities event.
type CapabilitiesEventBody struct {
	Capabilities Capabilities `json:"capabilities"`
}
