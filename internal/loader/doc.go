// Package loader imports pretrained weights from external formats.
//
// Two formats are supported:
//   - SafeTensors: the Hugging Face standard, used for timm and torchvision
//     exports. F16 and BF16 payloads are widened to float32 on load.
//   - PyTorch pickle archives (.pt/.pth): unpickled in pure Go, including
//     checkpoint wrappers that nest the state dict under "state_dict" or
//     "model".
//
// Parameter names are remapped to the toolkit's backbone/head convention,
// so torchvision ("fc.weight") and timm ("head.weight", "cls_token")
// exports load into the same module tree. The convention is auto-detected
// from the tensor names.
//
// Example:
//
//	weights, err := loader.OpenWeights("resnet50.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer weights.Close()
//
//	stateDict, err := weights.ReadStateDict(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.LoadStateDict(stateDict)
package loader
