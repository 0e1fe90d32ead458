package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/chatgate/internal/model"
)

// validate はリクエストボディの検証に使う共有インスタンス。
// validator.Validateはスレッドセーフで、構造体情報をキャッシュする。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// エラーメッセージにはGoのフィールド名ではなくJSONのキー名を使う
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest は構造体を検証し、失敗時はbad_request:apiを返す。
// 原因には最初に失敗したフィールドを含める。
func validateRequest(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return model.BadRequest(describeFieldError(first))
	}
	return model.BadRequest(err.Error())
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address", field)
	case "uuid":
		return fmt.Sprintf("field '%s' must be a valid UUID", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s long", field, fe.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of [%s]", field, fe.Param())
	case "eq":
		return fmt.Sprintf("field '%s' must be %s", field, fe.Param())
	default:
		return fmt.Sprintf("field '%s' failed on '%s'", field, fe.Tag())
	}
}
