package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type fakeProvider struct {
	lastReq Request
	answer  string
	err     error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req Request) (string, error) {
	f.lastReq = req
	return f.answer, f.err
}

type fakeRetriever struct {
	snap Snapshot
	err  error
}

func (f *fakeRetriever) Retrieve(ctx context.Context) (Snapshot, error) {
	return f.snap, f.err
}

func TestBuildPrompt(t *testing.T) {
	snap := Snapshot{
		Assembly:  "-> 0x401000:  call main.main",
		Registers: "rax 0x2a",
		Stack:     "0x7fff0000: 0xdeadbeef",
	}

	prompt := BuildPrompt(snap, "why did it crash?")

	for _, want := range []string{
		"Consider the following context in the debugger:",
		"Here is the assembly near the current instruction:",
		"Here is the current state of the registers:",
		"Here is the current state of the stack:",
		"Question: why did it crash?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(prompt, "Answer: ") {
		t.Errorf("prompt should end with answer cue, got %q", prompt[len(prompt)-20:])
	}
	if strings.Contains(prompt, "source code") {
		t.Error("empty source section should be omitted")
	}

	// Sections are fenced.
	if !strings.Contains(prompt, "```\nrax 0x2a\n```") {
		t.Error("registers not fenced")
	}
}

func TestBuildPromptSourceSection(t *testing.T) {
	snap := Snapshot{Source: "42: x := compute()"}
	prompt := BuildPrompt(snap, "what is x?")
	if !strings.Contains(prompt, "Here is the source code near the current line:") {
		t.Error("source section missing")
	}
}

func TestSnapshotEmpty(t *testing.T) {
	if !(Snapshot{}).Empty() {
		t.Error("zero snapshot should be empty")
	}
	if (Snapshot{Registers: "rax"}).Empty() {
		t.Error("snapshot with registers is not empty")
	}
}

func TestAssistantAsk(t *testing.T) {
	provider := &fakeProvider{answer: "  The program dereferenced nil.  "}
	retriever := &fakeRetriever{snap: Snapshot{Registers: "rax 0x0"}}

	assistant := NewAssistant(provider, retriever, DefaultOptions())
	answer, err := assistant.Ask(context.Background(), "what happened?", Options{})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "The program dereferenced nil." {
		t.Errorf("answer = %q", answer)
	}

	if !strings.Contains(provider.lastReq.Prompt, "rax 0x0") {
		t.Error("context not included in prompt")
	}
	if provider.lastReq.Temperature != 0.5 {
		t.Errorf("temperature = %v, want default", provider.lastReq.Temperature)
	}
	if provider.lastReq.MaxTokens != 100 {
		t.Errorf("maxTokens = %d, want default", provider.lastReq.MaxTokens)
	}
}

func TestAssistantAskOverrides(t *testing.T) {
	provider := &fakeProvider{answer: "ok"}
	retriever := &fakeRetriever{snap: Snapshot{Registers: "r"}}

	assistant := NewAssistant(provider, retriever, DefaultOptions())
	_, err := assistant.Ask(context.Background(), "q", Options{
		Model:       "custom-model",
		Temperature: 0.9,
		MaxTokens:   400,
	})
	if err != nil {
		t.Fatal(err)
	}
	if provider.lastReq.Model != "custom-model" {
		t.Errorf("model = %q", provider.lastReq.Model)
	}
	if provider.lastReq.Temperature != 0.9 || provider.lastReq.MaxTokens != 400 {
		t.Errorf("overrides not applied: %+v", provider.lastReq)
	}
}

func TestAssistantAskEmptyQuestion(t *testing.T) {
	assistant := NewAssistant(&fakeProvider{}, &fakeRetriever{}, DefaultOptions())
	if _, err := assistant.Ask(context.Background(), "   ", Options{}); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestAssistantAskRetrievalFailure(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("target is running")}
	assistant := NewAssistant(&fakeProvider{}, retriever, DefaultOptions())

	_, err := assistant.Ask(context.Background(), "q", Options{})
	if err == nil || !strings.Contains(err.Error(), "gather context") {
		t.Errorf("err = %v", err)
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider("nosuch"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewProviderMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider("openai")
	if err == nil {
		t.Fatal("expected error when key unset")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("err = %v", err)
	}
}
