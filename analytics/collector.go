// Package analytics records node outcomes to a JSON log file for
// offline analysis of automation behavior.
package analytics

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewTee(zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel))
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RecordNodeSuccess(flowId string, runId string, nodeId string, nodeType string, outcome string) {
	lc.logger.Info("success", zap.String("flowId", flowId), zap.String("runId", runId), zap.String("nodeId", nodeId), zap.String("nodeType", nodeType), zap.String("outcome", outcome))
}

func (lc *LogFileDataCollector) RecordNodeFailure(flowId string, runId string, nodeId string, nodeType string, reason string) {
	lc.logger.Info("failure", zap.String("flowId", flowId), zap.String("runId", runId), zap.String("nodeId", nodeId), zap.String("nodeType", nodeType), zap.String("reason", reason))
}
