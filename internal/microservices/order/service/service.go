package service

import (
	"venue-pos/internal/common/logger"
	"venue-pos/internal/microservices/order/repository"
)

type Service struct {
	OrderService OrderServiceInterface
}

func New(db repository.Repository, lg *logger.Logger) *Service {
	return &Service{
		OrderService: NewOrderService(db.OrderRepo, lg, nil),
	}
}
