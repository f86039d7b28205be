// animals.go: thin CRUD surface for tracked animals
package datastore

import (
	"fmt"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"gorm.io/gorm"
)

// CreateAnimal persists a new animal record.
func (ds *DataStore) CreateAnimal(animal *Animal) error {
	if animal == nil {
		return validationError("animal is nil", "animal", nil)
	}
	if animal.Name == "" {
		return validationError("animal name is empty", "name", "")
	}

	if err := ds.DB.Create(animal).Error; err != nil {
		return dbError(err, "create-animal", "", "farm_id", animal.FarmID)
	}

	return nil
}

// GetAnimal retrieves an animal by its ID.
func (ds *DataStore) GetAnimal(id uint) (*Animal, error) {
	var animal Animal
	if err := ds.DB.First(&animal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("animal", fmt.Sprintf("%d", id))
		}
		return nil, dbError(err, "get-animal", "", "animal_id", id)
	}
	return &animal, nil
}

// GetAnimalByCollar resolves a collar identifier to the animal wearing it.
func (ds *DataStore) GetAnimalByCollar(collarID string) (*Animal, error) {
	if collarID == "" {
		return nil, validationError("collar id is empty", "collar_id", "")
	}

	var animal Animal
	if err := ds.DB.Where("collar_id = ?", collarID).First(&animal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("animal", collarID)
		}
		return nil, dbError(err, "get-animal-by-collar", "", "collar_id", collarID)
	}
	return &animal, nil
}

// GetAnimals lists animals, optionally scoped to a farm (0 for all).
func (ds *DataStore) GetAnimals(farmID uint) ([]Animal, error) {
	var animals []Animal

	query := ds.DB.Order("name ASC")
	if farmID != 0 {
		query = query.Where("farm_id = ?", farmID)
	}

	if err := query.Find(&animals).Error; err != nil {
		return nil, dbError(err, "get-animals", "", "farm_id", farmID)
	}

	return animals, nil
}
