package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"stylesync/internal/tryon"
)

// 命令行试穿客户端,对接网关的生成接口并在本地维护历史与限流状态
func main() {
	var (
		endpoint   = flag.String("endpoint", "http://127.0.0.1:8080/api/try-on", "网关生成接口地址")
		modelImage = flag.String("model-image", "", "模特图片路径")
		modelDesc  = flag.String("model-prompt", "", "模特文字描述,与模特图片二选一")
		garment    = flag.String("garment", "", "服装图片路径,必填")
		bgImage    = flag.String("background-image", "", "背景图片路径")
		bgDesc     = flag.String("background-prompt", "", "背景文字描述,留空自动生成")
		seed       = flag.String("seed", "", "随机种子,留空由服务端决定")
		stateDir   = flag.String("state-dir", defaultStateDir(), "历史与限流状态目录")
		saveDir    = flag.String("save-dir", "", "结果图片保存目录,留空仅驻留内存")
		compress   = flag.Bool("compress", true, "提交前压缩超大图片")
		timeout    = flag.Duration("timeout", 120*time.Second, "单次生成超时")
		history    = flag.Bool("history", false, "仅打印本地历史后退出")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	store, err := tryon.NewFileStore(*stateDir)
	if err != nil {
		logger.WithError(err).Fatal("初始化状态目录失败")
	}

	client, err := tryon.New(tryon.Options{
		Endpoint: *endpoint,
		Store:    store,
		Compress: *compress,
		SaveDir:  *saveDir,
	})
	if err != nil {
		logger.WithError(err).Fatal("初始化客户端失败")
	}

	if *history {
		printHistory(client.State().History)
		return
	}

	if file := mustLoadImage(logger, *modelImage); file != nil {
		client.SetSubjectImage(file)
	} else if *modelDesc != "" {
		client.SetSubjectPrompt(*modelDesc)
	}
	if file := mustLoadImage(logger, *garment); file != nil {
		client.SetGarment(file)
	}
	if file := mustLoadImage(logger, *bgImage); file != nil {
		client.SetBackgroundImage(file)
	} else if *bgDesc != "" {
		client.SetBackgroundPrompt(*bgDesc)
	}
	client.SetSeed(*seed)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			client.Cancel()
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := client.Generate(ctx); err != nil {
		state := client.State()
		logger.WithField("detail", state.Error).WithError(err).Fatal("生成失败")
	}

	state := client.State()
	if state.Error != "" {
		logger.WithField("detail", state.Error).Fatal("生成失败")
	}
	if state.Result == nil {
		// 被取消时没有结果也没有错误
		logger.Info("生成已取消")
		return
	}

	result := state.Result
	logger.WithFields(logrus.Fields{
		"id":            result.ID,
		"url":           result.URL,
		"model":         result.Model,
		"garment":       result.Garment,
		"background":    result.Background,
		"seed":          result.Seed,
		"processing_ms": result.ProcessingTime.Milliseconds(),
	}).Info("生成完成")
	if result.Transient() {
		logger.Info("结果驻留内存,使用 -save-dir 落盘保存")
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stylesync"
	}
	return filepath.Join(home, ".stylesync")
}

// mustLoadImage 读取本地图片文件,路径为空返回 nil
func mustLoadImage(logger *logrus.Logger, path string) *tryon.ImageFile {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithField("path", path).WithError(err).Fatal("读取图片失败")
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	return &tryon.ImageFile{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}
}

func printHistory(entries []*tryon.Result) {
	if len(entries) == 0 {
		fmt.Println("暂无历史记录")
		return
	}
	for i, item := range entries {
		fmt.Printf("%2d  %s  %s\n", i+1, item.Timestamp.Format(time.RFC3339), item.URL)
		fmt.Printf("    模特: %s  服装: %s  背景: %s", item.Model, item.Garment, item.Background)
		if item.Seed != "" {
			fmt.Printf("  种子: %s", item.Seed)
		}
		fmt.Println()
	}
}
