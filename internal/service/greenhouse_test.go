package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"greenhouse-assistant/backend/ai"
	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/internal/planthealth"
	"greenhouse-assistant/backend/internal/repository"
	"greenhouse-assistant/backend/internal/service"
	"greenhouse-assistant/backend/internal/testutil"
	"greenhouse-assistant/backend/pkg/cache"
	apperrors "greenhouse-assistant/backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type greenhouseFixture struct {
	db          *gorm.DB
	store       *cache.Memory
	greenhouses *service.GreenhouseService
	plants      *service.PlantService
	sensors     *service.SensorService
	publisher   *recordingPublisher
	classifier  *stubClassifier
}

type recordingPublisher struct {
	greenhouseIDs []uint
	readings      []models.SensorReading
}

func (p *recordingPublisher) PublishReadings(greenhouseID uint, _ *models.Sensor, readings []models.SensorReading) {
	p.greenhouseIDs = append(p.greenhouseIDs, greenhouseID)
	p.readings = append(p.readings, readings...)
}

type stubClassifier struct {
	result *planthealth.Result
	err    error
}

func (c *stubClassifier) Classify(context.Context, string) (*planthealth.Result, error) {
	return c.result, c.err
}

func newGreenhouseFixture(t *testing.T) *greenhouseFixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := cache.NewMemory(100, time.Minute)
	t.Cleanup(store.Close)

	greenhouses := service.NewGreenhouseService(repository.NewGormGreenhouseRepository(db, 0), store, time.Minute, nil)
	publisher := &recordingPublisher{}
	classifier := &stubClassifier{}
	return &greenhouseFixture{
		db:          db,
		store:       store,
		greenhouses: greenhouses,
		plants:      service.NewPlantService(repository.NewGormPlantRepository(db, 0), greenhouses, classifier, nil),
		sensors:     service.NewSensorService(repository.NewGormSensorRepository(db, 0), greenhouses, publisher, nil),
		publisher:   publisher,
		classifier:  classifier,
	}
}

func TestGreenhouseOwnershipIsCached(t *testing.T) {
	f := newGreenhouseFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "ana")
	other := testutil.CreateUser(t, f.db, "luis")

	gh, err := f.greenhouses.Create(ctx, owner.ID, &models.CreateGreenhouseRequest{Name: "North"})
	require.NoError(t, err)

	require.NoError(t, f.greenhouses.Authorize(ctx, owner.ID, gh.ID))
	assert.Equal(t, 1, f.store.Count())
	err = f.greenhouses.Authorize(ctx, other.ID, gh.ID)
	assert.Equal(t, http.StatusForbidden, apperrors.GetStatusCode(err))

	require.NoError(t, f.greenhouses.Delete(ctx, gh.ID))
	assert.Equal(t, 0, f.store.Count())
	err = f.greenhouses.Authorize(ctx, owner.ID, gh.ID)
	assert.Equal(t, http.StatusNotFound, apperrors.GetStatusCode(err))
}

func TestGreenhouseUpdate(t *testing.T) {
	f := newGreenhouseFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "ana")
	gh := testutil.CreateGreenhouse(t, f.db, owner.ID, "North")

	_, err := f.greenhouses.Update(ctx, gh.ID, &models.UpdateGreenhouseRequest{})
	assert.Equal(t, http.StatusBadRequest, apperrors.GetStatusCode(err))

	updated, err := f.greenhouses.Update(ctx, gh.ID, &models.UpdateGreenhouseRequest{Location: strPtr("Los Mochis")})
	require.NoError(t, err)
	assert.Equal(t, "North", updated.Name)
	assert.Equal(t, "Los Mochis", updated.Location)
}

func TestGreenhouseDeleteCascades(t *testing.T) {
	f := newGreenhouseFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "ana")
	gh := testutil.CreateGreenhouse(t, f.db, owner.ID, "North")
	plant := testutil.CreatePlant(t, f.db, gh.ID, "Roma")
	sensor := testutil.CreateSensor(t, f.db, gh.ID, "t1", models.SensorTemperature)

	_, err := f.plants.AddAnalysis(ctx, plant.ID, &models.CreateAnalysisRequest{AnalysisType: models.AnalysisPest, Result: "aphids"})
	require.NoError(t, err)
	_, err = f.sensors.RecordReadings(ctx, sensor.ID, []float64{21, 22})
	require.NoError(t, err)

	require.NoError(t, f.greenhouses.Delete(ctx, gh.ID))

	for _, model := range []any{&models.Plant{}, &models.PlantAnalysis{}, &models.Sensor{}, &models.SensorReading{}} {
		var count int64
		require.NoError(t, f.db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T", model)
	}
}

func TestPlantCreateRequiresOwnership(t *testing.T) {
	f := newGreenhouseFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "ana")
	other := testutil.CreateUser(t, f.db, "luis")
	gh := testutil.CreateGreenhouse(t, f.db, owner.ID, "North")

	_, err := f.plants.Create(ctx, other.ID, &models.CreatePlantRequest{Name: "Roma", Type: "tomato", GreenhouseID: gh.ID})
	assert.Equal(t, http.StatusForbidden, apperrors.GetStatusCode(err))

	plant, err := f.plants.Create(ctx, owner.ID, &models.CreatePlantRequest{Name: "Roma", Type: "tomato", GreenhouseID: gh.ID})
	require.NoError(t, err)
	assert.NoError(t, f.plants.Authorize(ctx, owner.ID, plant.ID))
	assert.Equal(t, http.StatusForbidden, apperrors.GetStatusCode(f.plants.Authorize(ctx, other.ID, plant.ID)))
}

func TestClassifyStoresTopPrediction(t *testing.T) {
	f := newGreenhouseFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "ana")
	gh := testutil.CreateGreenhouse(t, f.db, owner.ID, "North")
	plant := testutil.CreatePlant(t, f.db, gh.ID, "Roma")

	top := planthealth.Prediction{Label: "Tomato___Late_blight", Score: 0.98234, ConfidencePercent: 98.23}
	f.classifier.result = &planthealth.Result{Predictions: []planthealth.Prediction{top}, Top: top}

	analysis, result, err := f.plants.Classify(ctx, plant.ID, "https://example.com/leaf.jpg")
	require.NoError(t, err)
	assert.Equal(t, top, result.Top)
	assert.Equal(t, models.AnalysisHealth, analysis.AnalysisType)
	assert.Equal(t, "Tomato___Late_blight", analysis.Result)
	require.NotNil(t, analysis.Confidence)
	assert.InDelta(t, 0.98234, *analysis.Confidence, 1e-9)

	stored, err := f.plants.Get(ctx, plant.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Analyses, 1)

	f.classifier.err = errors.New("model is loading")
	_, _, err = f.plants.Classify(ctx, plant.ID, "https://example.com/leaf.jpg")
	assert.Equal(t, http.StatusBadGateway, apperrors.GetStatusCode(err))
}

func TestClassifyWithoutClassifier(t *testing.T) {
	db := testutil.NewDB(t)
	greenhouses := service.NewGreenhouseService(repository.NewGormGreenhouseRepository(db, 0), nil, 0, nil)
	plants := service.NewPlantService(repository.NewGormPlantRepository(db, 0), greenhouses, nil, nil)

	_, _, err := plants.Classify(context.Background(), 1, "https://example.com/leaf.jpg")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfiguration))
}

func TestSensorDefaultsAndReadings(t *testing.T) {
	f := newGreenhouseFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "ana")
	gh := testutil.CreateGreenhouse(t, f.db, owner.ID, "North")

	sensor, err := f.sensors.Create(ctx, owner.ID, &models.CreateSensorRequest{Name: "t1", Type: models.SensorTemperature, GreenhouseID: gh.ID})
	require.NoError(t, err)
	assert.True(t, sensor.Active)

	inactive := false
	off, err := f.sensors.Create(ctx, owner.ID, &models.CreateSensorRequest{Name: "h1", Type: models.SensorHumidity, GreenhouseID: gh.ID, Active: &inactive})
	require.NoError(t, err)
	assert.False(t, off.Active)

	reading, err := f.sensors.RecordReading(ctx, sensor.ID, 24.5)
	require.NoError(t, err)
	assert.Equal(t, 24.5, reading.Value)

	bulk, err := f.sensors.RecordReadings(ctx, sensor.ID, []float64{25, 26})
	require.NoError(t, err)
	require.Len(t, bulk, 2)
	assert.Equal(t, bulk[0].RecordedAt, bulk[1].RecordedAt)

	assert.Equal(t, []uint{gh.ID, gh.ID}, f.publisher.greenhouseIDs)
	assert.Len(t, f.publisher.readings, 3)

	_, err = f.sensors.RecordReadings(ctx, sensor.ID, nil)
	assert.Equal(t, http.StatusBadRequest, apperrors.GetStatusCode(err))
	_, err = f.sensors.RecordReading(ctx, 999, 1)
	assert.Equal(t, http.StatusNotFound, apperrors.GetStatusCode(err))

	withReadings, err := f.sensors.Get(ctx, sensor.ID)
	require.NoError(t, err)
	assert.Len(t, withReadings.Readings, 3)
}

func TestLatestSensorData(t *testing.T) {
	f := newGreenhouseFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "ana")
	gh := testutil.CreateGreenhouse(t, f.db, owner.ID, "North")

	temp := testutil.CreateSensor(t, f.db, gh.ID, "north", models.SensorTemperature)
	hum := testutil.CreateSensor(t, f.db, gh.ID, "h1", models.SensorHumidity)
	temp2 := testutil.CreateSensor(t, f.db, gh.ID, "south", models.SensorTemperature)
	idle := testutil.CreateSensor(t, f.db, gh.ID, "idle", models.SensorLight)
	testutil.CreateSensor(t, f.db, gh.ID, "empty", models.SensorSoilMoisture)

	for _, step := range []struct {
		sensor uint
		value  float64
	}{{temp.ID, 20}, {temp.ID, 26.5}, {hum.ID, 75}, {temp2.ID, 24}, {idle.ID, 300}} {
		_, err := f.sensors.RecordReading(ctx, step.sensor, step.value)
		require.NoError(t, err)
	}
	_, err := f.sensors.Update(ctx, idle.ID, &models.UpdateSensorRequest{Active: new(bool)})
	require.NoError(t, err)

	data, err := f.sensors.LatestSensorData(ctx, gh.ID)
	require.NoError(t, err)
	assert.Equal(t, ai.SensorData{
		{Name: "temperature", Value: 26.5},
		{Name: "humidity", Value: 75.0},
		{Name: "temperature (south)", Value: 24.0},
	}, data)
	assert.Equal(t, "- temperature: 26.5\n- humidity: 75.0\n- temperature (south): 24.0", ai.FormatSensorData(data))
}
