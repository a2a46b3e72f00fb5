package delivery

import "github.com/go-playground/validator/v10"

// validate is safe for concurrent use and caches parsed rules
var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email,max=255") == nil
}

func validCoordinates(lat, lng float64) bool {
	return validate.Var(lat, "latitude") == nil && validate.Var(lng, "longitude") == nil
}
