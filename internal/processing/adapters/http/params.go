package http

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/Apurer/go-entity-processors/internal/shared/errors"
)

var handlerNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// bindNameParam binds the :name path parameter the way generated gin servers do.
func bindNameParam(c *gin.Context) (string, bool) {
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "name", c.Param("name"), &name, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		apierrors.Respond(c, apierrors.ErrBadRequest.WithDetail("invalid format for parameter name: "+err.Error()))
		return "", false
	}
	if !handlerNamePattern.MatchString(name) {
		apierrors.Respond(c, apierrors.ErrBadRequest.WithDetail("handler name must be snake_case"))
		return "", false
	}
	return name, true
}
