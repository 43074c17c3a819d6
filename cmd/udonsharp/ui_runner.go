package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"udonsharp/internal/buildpipeline"
	"udonsharp/internal/ui"
)

// runCompileWithUI runs the pipeline in the background while a progress view
// renders its events. If the view quits early the remaining events are
// drained so the pipeline still finishes and its result is returned.
func runCompileWithUI(ctx context.Context, title string, files []string, req *buildpipeline.CompileRequest) (buildpipeline.CompileResult, error) {
	events := make(chan buildpipeline.Event, 256)
	reqCopy := *req
	reqCopy.Files = files
	reqCopy.Progress = buildpipeline.ChannelSink{Ch: events}

	var (
		res buildpipeline.CompileResult
		err error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		res, err = buildpipeline.Compile(ctx, &reqCopy)
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, files, events), tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	for range events {
	}
	<-done
	if uiErr != nil {
		return res, uiErr
	}
	return res, err
}
