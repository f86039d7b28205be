// internal/api/v2/animals.go
package api

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/herdtrack/herdtrack-go/internal/datastore"
)

// initAnimalRoutes registers the animal CRUD endpoints
func (c *Controller) initAnimalRoutes() {
	c.Group.POST("/animals", c.CreateAnimal)
	c.Group.GET("/animals", c.ListAnimals)
}

type animalRequest struct {
	FarmID   uint   `json:"farm_id"`
	Name     string `json:"name"`
	Tag      string `json:"tag"`
	Species  string `json:"species"`
	CollarID string `json:"collar_id"`
}

// CreateAnimal registers a tracked animal, optionally bound to a collar.
func (c *Controller) CreateAnimal(ctx echo.Context) error {
	var req animalRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid animal payload", http.StatusBadRequest)
	}

	if req.FarmID == 0 {
		return c.HandleError(ctx, nil, "farm_id is required", http.StatusBadRequest)
	}
	if req.Name == "" {
		return c.HandleError(ctx, nil, "name is required", http.StatusBadRequest)
	}

	animal := &datastore.Animal{
		FarmID:   req.FarmID,
		Name:     req.Name,
		Tag:      req.Tag,
		Species:  req.Species,
		CollarID: req.CollarID,
	}
	if err := c.DS.CreateAnimal(animal); err != nil {
		return c.HandleError(ctx, err, "Failed to create animal", statusForError(err))
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "Animal created",
		"animal_id", animal.ID,
		"farm_id", animal.FarmID,
		"collar_id", animal.CollarID,
	)

	return ctx.JSON(http.StatusCreated, map[string]any{"success": true, "data": animal})
}

// ListAnimals returns the animals of one farm, or all animals when farm_id
// is absent.
func (c *Controller) ListAnimals(ctx echo.Context) error {
	farmID, err := optionalUintParam(ctx, "farm_id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid farm_id", http.StatusBadRequest)
	}

	animals, err := c.DS.GetAnimals(farmID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list animals", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"success": true, "data": animals})
}

// optionalUintParam parses an optional numeric query parameter, zero when
// absent.
func optionalUintParam(ctx echo.Context, name string) (uint, error) {
	value := ctx.QueryParam(name)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}
