package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// CustomHooks returns a viper decoder option running the default viper hooks followed by the given ones.
// viper.DecodeHook replaces rather than extends the decode hook, so every hook has to be composed into one.
func CustomHooks(hooks ...mapstructure.DecodeHookFunc) viper.DecoderConfigOption {
	all := []mapstructure.DecodeHookFunc{
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	}
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(append(all, hooks...)...))
}

// StringToTypeHookFunc allows a value of type T to be written in config as a plain string parsed by parse
func StringToTypeHookFunc[T any](parse func(string) (T, error)) mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf((*T)(nil)).Elem()
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// check that src and target types are valid
		if f.Kind() != reflect.String || t != target {
			return data, nil
		}
		return parse(data.(string))
	}
}
