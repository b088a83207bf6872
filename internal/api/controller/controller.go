package controller

import (
	"github.com/joonhk-lab/kosis-agent/internal/pkg/store"
	"github.com/joonhk-lab/kosis-agent/internal/service/extract"
)

type Controller struct {
	service *extract.Service
	store   store.Store
}

func NewController(service *extract.Service, store store.Store) *Controller {
	return &Controller{service: service, store: store}
}
