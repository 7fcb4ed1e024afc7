//go:build windows
// +build windows

// Package wmi provides a basic interface for querying against
// wmi. It's based on some underlying examples using ole [1].
//
// References:
//
// 1. https://stackoverflow.com/questions/20365286/query-wmi-from-go
package wmi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// S_FALSE: the COM library is already initialized on this thread
const comAlreadyInitialized = 0x00000001

func Query(ctx context.Context, slogger *slog.Logger, className string, properties []string) ([]map[string]interface{}, error) {
	slogger = slogger.With("component", "wmi", "class", className)
	handler := newOleHandler(slogger, properties)

	// Querying `*` and then fetching properties avoids an empty result when one
	// property name is wrong.
	queryString := fmt.Sprintf("SELECT * FROM %s", className)

	// COM state is per thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitialize(0); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != comAlreadyInitialized {
			return nil, fmt.Errorf("CoInitialize returned error: %w", err)
		}
		slogger.Log(ctx, slog.LevelDebug,
			"the COM library is already initialized on this thread",
		)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return nil, fmt.Errorf("ole createObject: %w", err)
	}
	defer unknown.Release()

	wmi, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, fmt.Errorf("query interface create: %w", err)
	}
	defer wmi.Release()

	// service is a SWbemServices
	serviceRaw, err := oleutil.CallMethod(wmi, "ConnectServer")
	if err != nil {
		return nil, fmt.Errorf("wmi connectserver: %w", err)
	}
	service := serviceRaw.ToIDispatch()
	defer service.Release()

	// result is a SWBemObjectSet
	resultRaw, err := oleutil.CallMethod(service, "ExecQuery", queryString)
	if err != nil {
		return nil, fmt.Errorf("running query %s: %w", queryString, err)
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	if err := oleutil.ForEach(result, func(v *ole.VARIANT) error {
		return handler.handleVariant(ctx, v)
	}); err != nil {
		return nil, fmt.Errorf("ole foreach: %w", err)
	}

	return handler.results, nil
}

type oleHandler struct {
	slogger    *slog.Logger
	results    []map[string]interface{}
	properties []string
}

func newOleHandler(slogger *slog.Logger, properties []string) *oleHandler {
	return &oleHandler{
		slogger:    slogger,
		properties: properties,
		results:    []map[string]interface{}{},
	}
}

func (oh *oleHandler) handleVariant(ctx context.Context, v *ole.VARIANT) error {
	item := v.ToIDispatch()
	defer item.Release()

	result := make(map[string]interface{})

	for _, p := range oh.properties {
		val, err := oleutil.GetProperty(item, p)
		if err != nil {
			oh.slogger.Log(ctx, slog.LevelDebug,
				"got error looking for property",
				"property", p,
				"err", err,
			)
			continue
		}
		result[p] = val.Value()
		val.Clear()
	}

	if len(result) > 0 {
		oh.results = append(oh.results, result)
	}

	return nil
}
