package logger

import (
	"go.uber.org/zap"
)

var l = zap.NewNop()

// Init 按运行模式初始化全局 logger（debug 用开发配置）
func Init(mode string) error {
	var (
		log *zap.Logger
		err error
	)
	if mode == "debug" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	l = log
	return nil
}

// L 返回底层 zap.Logger
func L() *zap.Logger { return l }

func Info(msg string, fields ...zap.Field)  { l.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { l.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { l.Error(msg, fields...) }
func Debug(msg string, fields ...zap.Field) { l.Debug(msg, fields...) }

func Sync() { _ = l.Sync() }
