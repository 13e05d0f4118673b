package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// --- FormatError ---

func TestFormatErrorBasicMessage(t *testing.T) {
	out := FormatError("no gateway available")
	if !strings.Contains(out, "Error:") {
		t.Error("expected 'Error:' prefix")
	}
	if !strings.Contains(out, "no gateway available") {
		t.Error("expected message in output")
	}
	if strings.Contains(out, "Try:") {
		t.Error("should not contain 'Try:' when no suggestions")
	}
}

func TestFormatErrorWithSuggestions(t *testing.T) {
	out := FormatError("port 8095 in use",
		"easysms serve --port 8096",
		"easysms status",
	)
	for _, want := range []string{"Try:", "easysms serve --port 8096", "easysms status", SymbolArrow} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got %q", want, out)
		}
	}
}

// --- StepSpinner (noSpin mode) ---

func TestStepSpinnerNoSpinDone(t *testing.T) {
	var buf bytes.Buffer
	sp := NewStepSpinner(&buf, true)
	sp.Start("aliyun")
	sp.Done()

	out := buf.String()
	if !strings.Contains(out, "aliyun") {
		t.Errorf("expected step message, got %q", out)
	}
	if !strings.Contains(out, SymbolCheck) {
		t.Errorf("expected check symbol, got %q", out)
	}
}

func TestStepSpinnerNoSpinFailWithReason(t *testing.T) {
	var buf bytes.Buffer
	sp := NewStepSpinner(&buf, true)
	sp.Start("tencent")
	sp.Fail("error 502")

	out := buf.String()
	if !strings.Contains(out, SymbolCross) {
		t.Errorf("expected cross symbol, got %q", out)
	}
	if !strings.Contains(out, "error 502") {
		t.Errorf("expected reason, got %q", out)
	}
}

func TestStepSpinnerWithoutStartNoPanic(t *testing.T) {
	var buf bytes.Buffer
	sp := NewStepSpinner(&buf, true)
	sp.Stop()
	sp.Done()
	sp.Fail()
}

func TestStepSpinnerMultipleSteps(t *testing.T) {
	var buf bytes.Buffer
	sp := NewStepSpinner(&buf, true)

	sp.Start("aliyun")
	sp.Fail()
	sp.Start("qiniu")
	sp.Done()

	out := buf.String()
	if strings.Count(out, SymbolCheck) != 1 || strings.Count(out, SymbolCross) != 1 {
		t.Errorf("expected one check and one cross, got %q", out)
	}
}

// --- StatusSymbol ---

func TestStatusSymbolPlain(t *testing.T) {
	if got := StatusSymbol(true, false); got != SymbolCheck {
		t.Errorf("StatusSymbol(true) = %q", got)
	}
	if got := StatusSymbol(false, false); got != SymbolCross {
		t.Errorf("StatusSymbol(false) = %q", got)
	}
}

func TestStatusSymbolColored(t *testing.T) {
	got := StatusSymbol(true, true)
	if !strings.Contains(got, SymbolCheck) || !strings.Contains(got, "\x1b[") {
		t.Errorf("expected colored check, got %q", got)
	}
}

// --- ColorEnabled ---

func TestColorEnabledRespectsNO_COLOR(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	if ColorEnabled() {
		t.Error("ColorEnabled should return false when NO_COLOR is set")
	}
	if ColorEnabledFd(os.Stderr.Fd()) {
		t.Error("ColorEnabledFd should return false when NO_COLOR is set")
	}
}

// --- ForcedRenderer ---

func TestForcedRendererProducesANSI(t *testing.T) {
	r := ForcedRenderer()
	if r != ForcedRenderer() {
		t.Fatal("ForcedRenderer should return the same instance")
	}
	out := r.NewStyle().Bold(true).Render("sent")
	if !strings.Contains(out, "sent") || !strings.Contains(out, "\x1b[") {
		t.Errorf("forced renderer should produce ANSI codes, got %q", out)
	}
}
