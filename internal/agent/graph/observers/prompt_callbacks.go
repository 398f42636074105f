package observers

import (
	"context"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// newPromptHandler builds a typed PromptCallbackHandler (not yet wrapped).
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *prompt.CallbackInput) context.Context {
			fmt.Printf("[Prompt|%s|%s] start\n", info.Type, info.Name)
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			fmt.Printf("[Prompt|%s|%s] end\n", info.Type, info.Name)
			if output != nil && len(output.Result) > 0 && output.Result[0] != nil {
				fmt.Printf("rendered: %s\n", output.Result[0].Content)
			}
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			fmt.Printf("[Prompt|%s|%s] error: %v\n", info.Type, info.Name, err)
			return ctx
		},
	}
}
