package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
)

const (
	OperationProductServicePublicList = "/factfit.public.ProductService/PublicList"
	OperationProductServiceList       = "/factfit.staff.ProductService/List"
	OperationProductServiceGet        = "/factfit.staff.ProductService/Get"
	OperationProductServiceCreate     = "/factfit.staff.ProductService/Create"
	OperationProductServiceUpdate     = "/factfit.staff.ProductService/Update"
	OperationProductServiceDelete     = "/factfit.staff.ProductService/Delete"
)

// CreateProductRequest 新建商品
type CreateProductRequest struct {
	SKU         string  `json:"sku" validate:"required,max=64"`
	Name        string  `json:"name" validate:"required,max=128"`
	PriceCash   int64   `json:"price_cash" validate:"gte=0"`
	PricePoints int64   `json:"price_points" validate:"gte=0"`
	Stock       int64   `json:"stock" validate:"gte=0"`
	Active      *bool   `json:"active"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
	ImageURL    *string `json:"image_url" validate:"omitempty,max=512"`
}

// UpdateProductRequest 部分更新商品
type UpdateProductRequest struct {
	ID          int64   `json:"-" validate:"required,gt=0"`
	SKU         *string `json:"sku" validate:"omitempty,max=64"`
	Name        *string `json:"name" validate:"omitempty,max=128"`
	PriceCash   *int64  `json:"price_cash" validate:"omitempty,gte=0"`
	PricePoints *int64  `json:"price_points" validate:"omitempty,gte=0"`
	Stock       *int64  `json:"stock" validate:"omitempty,gte=0"`
	Active      *bool   `json:"active"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
	ImageURL    *string `json:"image_url" validate:"omitempty,max=512"`
}

// ProductIDRequest 路径中的商品 id
type ProductIDRequest struct {
	ID int64 `json:"-" validate:"required,gt=0"`
}

// ListProductsReply 商品列表
type ListProductsReply struct {
	Products []*biz.Product `json:"products"`
}

// ProductService 商品接口
type ProductService struct {
	uc     *biz.ProductUsecase
	logger *log.Helper
}

// NewProductService 创建 ProductService 实例
func NewProductService(uc *biz.ProductUsecase, logger log.Logger) *ProductService {
	return &ProductService{uc: uc, logger: log.NewHelper(logger)}
}

func (s *ProductService) List(ctx context.Context, activeOnly bool) (*ListProductsReply, error) {
	products, err := s.uc.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	return &ListProductsReply{Products: products}, nil
}

func (s *ProductService) Get(ctx context.Context, req *ProductIDRequest) (*biz.Product, error) {
	return s.uc.Get(ctx, req.ID)
}

func (s *ProductService) Create(ctx context.Context, req *CreateProductRequest) (*biz.Product, error) {
	s.logger.WithContext(ctx).Infof("Received Create product request for sku: %s", req.SKU)
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return s.uc.Create(ctx, &biz.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		PriceCash:   req.PriceCash,
		PricePoints: req.PricePoints,
		Stock:       req.Stock,
		Active:      active,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
}

func (s *ProductService) Update(ctx context.Context, req *UpdateProductRequest) (*biz.Product, error) {
	s.logger.WithContext(ctx).Infof("Received Update product request for id: %d", req.ID)
	return s.uc.Update(ctx, req.ID, &biz.ProductUpdate{
		SKU:         req.SKU,
		Name:        req.Name,
		PriceCash:   req.PriceCash,
		PricePoints: req.PricePoints,
		Stock:       req.Stock,
		Active:      req.Active,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
}

func (s *ProductService) Delete(ctx context.Context, req *ProductIDRequest) (*DeleteReply, error) {
	s.logger.WithContext(ctx).Infof("Received Delete product request for id: %d", req.ID)
	if err := s.uc.Delete(ctx, req.ID); err != nil {
		return nil, err
	}
	return &DeleteReply{Deleted: true}, nil
}

// RegisterProductServiceHTTPServer 注册商品路由
func RegisterProductServiceHTTPServer(s *http.Server, srv *ProductService) {
	r := s.Route("/")
	r.GET("/api/products/public", func(ctx http.Context) error {
		return handle(ctx, OperationProductServicePublicList, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.List(ctx, true)
		})
	})
	r.GET("/api/products", func(ctx http.Context) error {
		activeOnly := ctx.Query().Get("active") == "true"
		return handle(ctx, OperationProductServiceList, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.List(ctx, activeOnly)
		})
	})
	r.GET("/api/products/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationProductServiceGet, &ProductIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Get(ctx, req.(*ProductIDRequest))
		})
	})
	r.POST("/api/products", func(ctx http.Context) error {
		var in CreateProductRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationProductServiceCreate, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Create(ctx, req.(*CreateProductRequest))
		})
	})
	r.PUT("/api/products/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var in UpdateProductRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		in.ID = id
		return handle(ctx, OperationProductServiceUpdate, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Update(ctx, req.(*UpdateProductRequest))
		})
	})
	r.DELETE("/api/products/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationProductServiceDelete, &ProductIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Delete(ctx, req.(*ProductIDRequest))
		})
	})
}
