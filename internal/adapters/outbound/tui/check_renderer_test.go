package tui_test

import (
	"testing"

	"github.com/iacscan/iacscan/internal/adapters/outbound/tui"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRenderChecks(t *testing.T) {
	out := tui.RenderChecks([]domain.CheckDefinition{
		{Name: "tflint", TargetEntityType: domain.TargetIaC, Enabled: true, Configured: true, Description: "A Pluggable Terraform Linter"},
		{Name: "snyk", TargetEntityType: domain.TargetBoth, Description: "Snyk"},
	})

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "tflint")
	assert.Contains(t, out, "IaC and component")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "no")
	assert.Contains(t, out, "2")
}
