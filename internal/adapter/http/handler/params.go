package handler

import (
	"collateral-ledger/internal/adapter/http/dto"
	"collateral-ledger/internal/adapter/http/middleware"
	"collateral-ledger/internal/core/domain"
	"collateral-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
)

func callerFrom(c *gin.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return "", apperror.ErrInvalidToken()
	}
	return p, nil
}

// keyFromPath reads the :collection and :token route params.
func keyFromPath(c *gin.Context) (domain.CollateralKey, error) {
	collection, token := c.Param("collection"), c.Param("token")
	if !dto.ValidCollateralID(collection) || !dto.ValidCollateralID(token) {
		return domain.CollateralKey{}, apperror.Validation("invalid collateral key")
	}
	return domain.CollateralKey{CollectionID: collection, TokenID: token}, nil
}

func principalFromPath(c *gin.Context, name string) (domain.Principal, error) {
	v := c.Param(name)
	if !dto.ValidPrincipal(v) {
		return "", apperror.Validation("invalid " + name)
	}
	return domain.Principal(v), nil
}
