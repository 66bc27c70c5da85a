// controllers/product.go
package controllers

import (
	"errors"
	"net/http"

	"emidesk-backend/config"
	"emidesk-backend/models"
	"emidesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateProductInput defines the expected JSON structure for creating a catalog product
type CreateProductInput struct {
	Name string  `json:"name" binding:"required"`
	Rate float64 `json:"rate" binding:"min=0"`
	GST  float64 `json:"gst" binding:"min=0,max=100"`
}

// UpdateProductInput defines the expected JSON structure for updating a catalog product
type UpdateProductInput struct {
	Name     *string  `json:"name"`
	Rate     *float64 `json:"rate"`
	GST      *float64 `json:"gst"`
	IsActive *bool    `json:"isActive"`
}

// CreateProduct adds a product to the master catalog
func CreateProduct(c *gin.Context) {
	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	product := models.MasterProduct{
		ID:       uuid.New(),
		Name:     input.Name,
		Rate:     input.Rate,
		GST:      input.GST,
		IsActive: true,
	}

	if err := config.DB.Create(&product).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create product")
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GetProducts retrieves the master product catalog
func GetProducts(c *gin.Context) {
	var products []models.MasterProduct
	if err := config.DB.Find(&products).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct retrieves a specific product by ID
func GetProduct(c *gin.Context) {
	productUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var product models.MasterProduct
	if err := config.DB.First(&product, "id = ?", productUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Product not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.JSON(http.StatusOK, product)
}

// UpdateProduct updates an existing catalog product
func UpdateProduct(c *gin.Context) {
	productUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var product models.MasterProduct
	if err := config.DB.First(&product, "id = ?", productUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Product not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Rate != nil {
		product.Rate = *input.Rate
	}
	if input.GST != nil {
		product.GST = *input.GST
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&product).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product from the catalog. Existing invoice
// items keep their copied name and rate.
func DeleteProduct(c *gin.Context) {
	productUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var product models.MasterProduct
	if err := config.DB.First(&product, "id = ?", productUUID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Product not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := config.DB.Delete(&product).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
