package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"greenhouse-assistant/backend/internal/weather"
)

func main() {
	lat := flag.Float64("lat", weather.DefaultLatitude, "latitude")
	lon := flag.Float64("lon", weather.DefaultLongitude, "longitude")
	baseURL := flag.String("url", weather.DefaultBaseURL, "forecast endpoint")
	asJSON := flag.Bool("json", false, "print the raw forecast as JSON")
	hours := flag.Int("hours", 24, "hours to print")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	forecast, err := weather.NewClient(*baseURL, 15*time.Second).Forecast(ctx, *lat, *lon)
	if err != nil {
		fmt.Fprintln(os.Stderr, "forecast:", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(forecast)
		return
	}

	fmt.Printf("Coordinates %.3f°N %.3f°E, elevation %.0f m, UTC offset %ds\n",
		forecast.Latitude, forecast.Longitude, forecast.Elevation, forecast.UTCOffsetSeconds)
	h := forecast.Hourly
	fmt.Printf("%-20s %8s %8s %6s %6s\n", "time", "temp", "humidity", "rain", "prob")
	for i := 0; i < len(h.Time) && i < *hours; i++ {
		fmt.Printf("%-20s %8s %8s %6s %6s\n",
			h.Time[i].Format("2006-01-02 15:04"),
			value(h.Temperature2m, i), value(h.RelativeHumidity2m, i),
			value(h.Rain, i), value(h.PrecipitationProbability, i))
	}
}

func value(series []*float64, i int) string {
	if i >= len(series) || series[i] == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *series[i])
}
