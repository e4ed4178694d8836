package middleware

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

// ValidateAndSanitizeStruct binds the JSON body into a fresh value of obj's type, sanitises
// and validates it and stores it in the context under SanitizedPayloadKey.
func ValidateAndSanitizeStruct(obj interface{}) gin.HandlerFunc {
	objType := reflect.TypeOf(obj).Elem()

	return func(c *gin.Context) {
		payload := reflect.New(objType).Interface()
		if err := c.ShouldBindJSON(payload); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
			return
		}

		v := utils.GetValidator()
		if err := v.SanitizeData(payload); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest, http.StatusBadRequest, err)
			return
		}

		if err := v.Validate.Struct(payload); err != nil {
			utils.WriteAndLogError(c, schemas.BadRequest.WithDetails(validationDetails(err)), http.StatusBadRequest, err)
			return
		}

		c.Set(utils.SanitizedPayloadKey.String(), payload)
		c.Next()
	}
}

func validationDetails(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	details := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		details = append(details, fieldError.Field()+" failed on the '"+fieldError.Tag()+"' rule")
	}
	return details
}
