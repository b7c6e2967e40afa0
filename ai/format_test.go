package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorDataKeepsInputOrder(t *testing.T) {
	var data SensorData
	require.NoError(t, json.Unmarshal([]byte(`{"temperature": 26.5, "humidity": 75.0}`), &data))

	assert.Equal(t, "- temperature: 26.5\n- humidity: 75.0", FormatSensorData(data))

	var reversed SensorData
	require.NoError(t, json.Unmarshal([]byte(`{"humidity": 75.0, "temperature": 26.5}`), &reversed))
	assert.Equal(t, "- humidity: 75.0\n- temperature: 26.5", FormatSensorData(reversed))
}

func TestSensorDataValueKinds(t *testing.T) {
	var data SensorData
	data.Add("temperature", 21.0)
	data.Add("light", float32(350.25))
	data.Add("status", "ok")
	data.Add("active", true)
	data.Add("missing", nil)

	want := "- temperature: 21.0\n- light: 350.25\n- status: ok\n- active: true\n- missing: null"
	assert.Equal(t, want, FormatSensorData(data))
}

func TestSensorDataJSON(t *testing.T) {
	var data SensorData
	require.NoError(t, json.Unmarshal([]byte(`{"b": 1, "a": "x"}`), &data))
	out, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b": 1, "a": "x"}`, string(out))
	assert.Equal(t, `{"b":1,"a":"x"}`, string(out))

	var null SensorData
	require.NoError(t, json.Unmarshal([]byte(`null`), &null))
	assert.Nil(t, null)

	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &data))
}

func TestFormatPlantAnalysisRounding(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       string
	}{
		{"two decimals", 98.234, "Confidence: 98.23%"},
		{"rounds up", 98.236, "Confidence: 98.24%"},
		{"exact half goes to even", 0.125, "Confidence: 0.12%"},
		{"exact half goes to even upwards", 0.375, "Confidence: 0.38%"},
		{"zero", 0, "Confidence: 0.00%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatPlantAnalysis(PlantAnalysis{Label: "Tomato___Late_blight", ConfidencePercent: tt.confidence})
			assert.Equal(t, "Detected disease: Tomato___Late_blight\n"+tt.want, got)
		})
	}
}

func TestFormatPlantAnalysisEmptyLabel(t *testing.T) {
	assert.Equal(t, "Detected disease: \nConfidence: 12.00%", FormatPlantAnalysis(PlantAnalysis{ConfidencePercent: 12}))
}

func TestSensorDataNumberLiterals(t *testing.T) {
	var data SensorData
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1e2, "b": 26, "c": 0.5, "d": 1e16, "e": 0.00001, "f": -3.0, "g": 1.5E-7}`), &data))
	want := "- a: 100.0\n- b: 26\n- c: 0.5\n- d: 1e+16\n- e: 1e-05\n- f: -3.0\n- g: 1.5e-07"
	assert.Equal(t, want, FormatSensorData(data))
}

func TestFormatFloatNotation(t *testing.T) {
	assert.Equal(t, "1000000.0", formatFloat(1e6, 64))
	assert.Equal(t, "0.0001", formatFloat(0.0001, 64))
	assert.Equal(t, "123456789012345.0", formatFloat(123456789012345, 64))
}

func TestBuildPrompt(t *testing.T) {
	var data SensorData
	data.Add("temperature", json.Number("26.5"))
	analysis := &PlantAnalysis{Label: "Tomato___Late_blight", ConfidencePercent: 98.234}

	assert.Equal(t, "hello", BuildPrompt("hello", nil, nil))
	assert.Equal(t, "hello", BuildPrompt("hello", SensorData{}, &PlantAnalysis{}))
	assert.Equal(t, "hello\n\n[SENSOR DATA]\n- temperature: 26.5", BuildPrompt("hello", data, nil))
	assert.Equal(t,
		"hello\n\n[SENSOR DATA]\n- temperature: 26.5\n\n[PLANT ANALYSIS]\nDetected disease: Tomato___Late_blight\nConfidence: 98.23%",
		BuildPrompt("hello", data, analysis))
	assert.Equal(t,
		"hello\n\n[PLANT ANALYSIS]\nDetected disease: Tomato___Late_blight\nConfidence: 98.23%",
		BuildPrompt("hello", nil, analysis))
}
