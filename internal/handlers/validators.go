package handlers

import (
	"reflect"
	"sync"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerValidatorsOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's validator.
func RegisterValidators() error {
	var err error
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// decimal.Decimal is validated by its float value so gt/min tags work.
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})

		if err = v.RegisterValidation("rotation_policy", func(fl validator.FieldLevel) bool {
			return domain.RotationPolicy(fl.Field().String()).IsValid()
		}); err != nil {
			return
		}
		if err = v.RegisterValidation("payout_status", func(fl validator.FieldLevel) bool {
			return domain.PayoutStatus(fl.Field().String()).IsValid()
		}); err != nil {
			return
		}
		err = v.RegisterValidation("amount_type", func(fl validator.FieldLevel) bool {
			return domain.AmountType(fl.Field().String()).IsValid()
		})
	})
	return err
}
