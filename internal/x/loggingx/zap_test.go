package loggingx_test

import (
	. "github.com/kakkerlakgly/adapterkit/internal/x/loggingx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("func Zap()", func() {
	It("writes log messages at the info level", func() {
		core, logs := observer.New(zapcore.InfoLevel)
		logger := Zap(zap.New(core))

		logger.Log("format %d", 1)
		logger.Debug("<debug>")

		Expect(logger.IsDebug()).To(BeFalse())
		Expect(logs.Len()).To(Equal(1))

		e := logs.All()[0]
		Expect(e.Level).To(Equal(zapcore.InfoLevel))
		Expect(e.Message).To(Equal("format 1"))
	})

	It("writes debug messages when the debug level is enabled", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := Zap(zap.New(core))

		logger.DebugString("<debug>")

		Expect(logger.IsDebug()).To(BeTrue())
		Expect(logs.FilterMessage("<debug>").Len()).To(Equal(1))
	})
})
