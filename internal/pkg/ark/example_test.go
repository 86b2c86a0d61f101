package ark_test

import (
	"context"
	"fmt"
	"os"

	"slidecast/internal/pkg/ark"
)

// ExampleImageClient_GenerateImage 演示用会话凭证生成一张图片
func ExampleImageClient_GenerateImage() {
	apiKey := os.Getenv("ARK_API_KEY")
	if apiKey == "" {
		apiKey = "your-api-key-here" // 仅用于示例
	}

	client := ark.NewImageClient(ark.ImageConfig{Size: "1280x720"})

	image, err := client.GenerateImage(context.Background(), apiKey, "a lighthouse at dusk. Style: watercolor")
	if err != nil {
		fmt.Printf("生成失败: %v\n", err)
		return
	}
	fmt.Println(len(image))
}
