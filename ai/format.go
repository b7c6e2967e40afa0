package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	sensorDataHeader    = "[SENSOR DATA]"
	plantAnalysisHeader = "[PLANT ANALYSIS]"
)

// FormatSensorData renders one "- name: value" line per entry, in order
func FormatSensorData(data SensorData) string {
	lines := make([]string, 0, len(data))
	for _, entry := range data {
		lines = append(lines, fmt.Sprintf("- %s: %s", entry.Name, formatValue(entry.Value)))
	}
	return strings.Join(lines, "\n")
}

// FormatPlantAnalysis renders the detected disease and its confidence with
// two decimals. Go rounds the binary value, so exact halves go to even.
func FormatPlantAnalysis(analysis PlantAnalysis) string {
	return fmt.Sprintf("Detected disease: %s\nConfidence: %.2f%%", analysis.Label, analysis.ConfidencePercent)
}

// BuildPrompt appends the optional context blocks to the user message
func BuildPrompt(message string, data SensorData, analysis *PlantAnalysis) string {
	var b strings.Builder
	b.WriteString(message)
	if len(data) > 0 {
		b.WriteString("\n\n" + sensorDataHeader + "\n")
		b.WriteString(FormatSensorData(data))
	}
	if analysis != nil && !analysis.IsZero() {
		b.WriteString("\n\n" + plantAnalysisHeader + "\n")
		b.WriteString(FormatPlantAnalysis(*analysis))
	}
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case json.Number:
		return formatNumber(val)
	case float64:
		return formatFloat(val, 64)
	case float32:
		return formatFloat(float64(val), 32)
	case bool:
		return strconv.FormatBool(val)
	default:
		if b, err := json.Marshal(val); err == nil {
			return string(b)
		}
		return fmt.Sprint(val)
	}
}

// formatNumber keeps integer literals as written and renders any other
// literal as a float, so 26 stays 26 while 1e2 becomes 100.0
func formatNumber(n json.Number) string {
	if !strings.ContainsAny(n.String(), ".eE") {
		return n.String()
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return formatFloat(f, 64)
}

// formatFloat renders the shortest round-trip digits. Exponents from -4 to
// 15 use plain notation with at least one decimal (75 reads as 75.0); larger
// or smaller magnitudes use scientific notation such as 1e+16.
func formatFloat(f float64, bits int) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	sci := strconv.FormatFloat(f, 'e', -1, bits)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
