//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"factfit/internal/biz"
	"factfit/internal/conf"
	"factfit/internal/data"
	"factfit/internal/server"
	"factfit/internal/service"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Auth, *conf.Data, *conf.Payment, *conf.Mail, *conf.Loyalty, *conf.Membership, *conf.Entry, *conf.Workout, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, infraSet, newApp))
}
