package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAnalysisValid(t *testing.T) {
	content := `{
		"overview": "Contact records extracted from three scanned documents.",
		"insights": ["Most rows share the same email domain."],
		"quality": "Complete except for two missing phone numbers.",
		"recommendations": ["Normalize phone number formatting."]
	}`

	assert.NoError(t, ValidateAnalysis(content))
}

func TestValidateAnalysisMissingField(t *testing.T) {
	content := `{
		"overview": "Contact records.",
		"insights": [],
		"quality": "Fine"
	}`

	err := ValidateAnalysis(content)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.NotEmpty(t, ve.Errors)
}

func TestValidateAnalysisWrongType(t *testing.T) {
	content := `{
		"overview": "Contact records.",
		"insights": "not an array",
		"quality": "Fine",
		"recommendations": []
	}`

	err := ValidateAnalysis(content)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestValidateAnalysisRejectsExtraFields(t *testing.T) {
	content := `{
		"overview": "Contact records.",
		"insights": [],
		"quality": "Fine",
		"recommendations": [],
		"verdict": "surprise"
	}`

	assert.Error(t, ValidateAnalysis(content))
}

func TestValidateJSONStringInvalidSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": "nonsense"}`, `{}`)
	require.Error(t, err)

	var se *SchemaLoadError
	assert.True(t, errors.As(err, &se))
}
