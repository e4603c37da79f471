// Package validate 自定义校验标签，注册到 gin 的 validator 实例
package validate

import (
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 自定义标签
const (
	NotBlankTag = "notblank"
	ExamTypeTag = "exam_type"
	ExamYearTag = "exam_year"
	ExamDateTag = "exam_date"
)

// DateLayout 考试日期格式
const DateLayout = "2006-01-02"

// ExamTypes 允许的考试类型
var ExamTypes = []string{"IA1", "IA2", "Model", "Semester"}

// ExamYears 允许的考试对象
var ExamYears = []string{"1st Year", "Higher Semester"}

// Register 向 validator 注册自定义标签，并使用 json / form 标签名作为字段名
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	validations := map[string]validator.Func{
		NotBlankTag: notBlank,
		ExamTypeTag: oneOf(ExamTypes),
		ExamYearTag: oneOf(ExamYears),
		ExamDateTag: examDate,
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// RegisterGin 注册到 gin 默认的 binding 引擎
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return Register(v)
}

// IsExamDate 判断是否为合法的 YYYY-MM-DD 日期
func IsExamDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func notBlank(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return true
	}
	return strings.TrimSpace(str) != ""
}

// examDate 空值交给 required / omitempty 处理
func examDate(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok || str == "" {
		return true
	}
	return IsExamDate(str)
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok || str == "" {
			return true
		}
		for _, a := range allowed {
			if str == a {
				return true
			}
		}
		return false
	}
}
