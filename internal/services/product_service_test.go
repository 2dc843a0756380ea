// internal/services/product_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/urbanthreads/storefront-backend/internal/events"
	"github.com/urbanthreads/storefront-backend/internal/models"
)

type ProductServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	transport *recordingBroadcaster
	products  *ProductService
}

func (suite *ProductServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.transport = &recordingBroadcaster{}
	suite.products = NewProductService(suite.db, nil, events.NewEmitter(suite.transport))
}

func (suite *ProductServiceTestSuite) TestCreateProduct() {
	product, err := suite.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name:     "Urban Denim Jacket",
		Price:    89.99,
		Category: "jackets",
		Stock:    25,
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), "urban-denim-jacket", product.Slug)
	assert.Equal(suite.T(), models.DefaultSizes, product.Sizes)

	created := suite.transport.named(events.EventProductCreated)
	suite.Require().Len(created, 1)
	assert.True(suite.T(), created[0].AdminOnly)

	// Stock is above the threshold, no alert
	assert.Empty(suite.T(), suite.transport.named(events.EventProductLowStock))
}

func (suite *ProductServiceTestSuite) TestCreateProductWithLowInitialStock() {
	_, err := suite.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name:     "Limited Run Tee",
		Price:    35,
		Category: "shirts",
		Stock:    4,
	})
	suite.Require().NoError(err)

	low := suite.transport.named(events.EventProductLowStock)
	suite.Require().Len(low, 1)
	assert.True(suite.T(), low[0].AdminOnly)
	assert.Equal(suite.T(), 4, low[0].Payload.(events.LowStockPayload).Stock)
}

func (suite *ProductServiceTestSuite) TestCreateProductDuplicateSlug() {
	_, err := suite.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name:     "Classic Hoodie",
		Price:    60,
		Category: "hoodies",
		Stock:    20,
	})
	suite.Require().NoError(err)

	_, err = suite.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name:     "Classic Hoodie",
		Price:    65,
		Category: "hoodies",
		Stock:    10,
	})
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "already exists")
}

func (suite *ProductServiceTestSuite) TestCreateProductValidation() {
	_, err := suite.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name:     "X",
		Price:    -5,
		Category: "",
	})
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "validation failed")
	assert.Empty(suite.T(), suite.transport.events)
}

func (suite *ProductServiceTestSuite) TestGetProductBySlug() {
	created, err := suite.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name:     "Wool Overcoat",
		Price:    210,
		Category: "coats",
		Stock:    15,
	})
	suite.Require().NoError(err)

	found, err := suite.products.GetProductBySlug(context.Background(), "wool-overcoat")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), created.ID, found.ID)

	_, err = suite.products.GetProductBySlug(context.Background(), "no-such-product")
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "not found")
}

func (suite *ProductServiceTestSuite) TestUpdateProductEmitsUpdate() {
	product, err := suite.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name:     "Field Jacket",
		Price:    110,
		Category: "jackets",
		Stock:    30,
	})
	suite.Require().NoError(err)
	suite.transport.reset()

	newPrice := 95.0
	updated, err := suite.products.UpdateProduct(context.Background(), product.ID, &UpdateProductRequest{
		Price: &newPrice,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 95.0, updated.Price)

	updatedEvents := suite.transport.named(events.EventProductUpdated)
	suite.Require().Len(updatedEvents, 1)
	assert.False(suite.T(), updatedEvents[0].AdminOnly)

	// Price change alone does not touch stock
	assert.Empty(suite.T(), suite.transport.named(events.EventProductStockUpdated))
}

func (suite *ProductServiceTestSuite) TestUpdateProductStockEmitsStockEvents() {
	product, err := suite.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name:     "Rain Shell",
		Price:    80,
		Category: "jackets",
		Stock:    30,
	})
	suite.Require().NoError(err)
	suite.transport.reset()

	newStock := 6
	_, err = suite.products.UpdateProduct(context.Background(), product.ID, &UpdateProductRequest{
		Stock: &newStock,
	})
	suite.Require().NoError(err)

	stock := suite.transport.named(events.EventProductStockUpdated)
	suite.Require().Len(stock, 1)
	assert.Equal(suite.T(), 6, stock[0].Payload.(events.StockUpdatedPayload).Stock)

	suite.Require().Len(suite.transport.named(events.EventProductLowStock), 1)
}

func (suite *ProductServiceTestSuite) TestDeleteProduct() {
	product, err := suite.products.CreateProduct(context.Background(), &CreateProductRequest{
		Name:     "Discontinued Cap",
		Price:    20,
		Category: "accessories",
		Stock:    12,
	})
	suite.Require().NoError(err)
	suite.transport.reset()

	suite.Require().NoError(suite.products.DeleteProduct(context.Background(), product.ID))

	_, err = suite.products.GetProduct(context.Background(), product.ID)
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "not found")

	deleted := suite.transport.named(events.EventProductDeleted)
	suite.Require().Len(deleted, 1)
	assert.True(suite.T(), deleted[0].AdminOnly)
	assert.Equal(suite.T(), product.ID.String(), deleted[0].Payload.(events.ProductDeletedPayload).ProductID)
}

func (suite *ProductServiceTestSuite) TestDeleteUnknownProduct() {
	err := suite.products.DeleteProduct(context.Background(), uuid.New())
	suite.Require().Error(err)
	assert.Contains(suite.T(), err.Error(), "not found")
}

func (suite *ProductServiceTestSuite) TestListProductsFilters() {
	for _, p := range []CreateProductRequest{
		{Name: "Featured Coat", Price: 100, Category: "coats", Stock: 20, IsFeatured: true},
		{Name: "Plain Coat", Price: 90, Category: "coats", Stock: 20},
		{Name: "Plain Shirt", Price: 40, Category: "shirts", Stock: 20},
	} {
		req := p
		_, err := suite.products.CreateProduct(context.Background(), &req)
		suite.Require().NoError(err)
	}

	params := utilsParams(1, 10)

	coats, err := suite.products.ListProducts(context.Background(), params, ProductFilters{Category: "coats"})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), coats.Total)

	featured := true
	result, err := suite.products.ListProducts(context.Background(), params, ProductFilters{Featured: &featured})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), result.Total)
}

func TestProductServiceSuite(t *testing.T) {
	suite.Run(t, new(ProductServiceTestSuite))
}
