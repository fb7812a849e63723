// texdemo drives the texture lifecycle layer against a real GL 4.1
// context: a checkerboard texture is re-staged every second on the CPU
// and streamed back to the GPU by the transfer coordinator while the
// render loop keeps drawing whatever version is ready.
package main

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"texstream/internal/gltex"
	"texstream/internal/gpu"
)

const (
	windowWidth  = 800
	windowHeight = 600
	textureSize  = 256
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := glfw.Init(); err != nil {
		logrus.WithError(err).Fatal("glfw init failed")
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err := glfw.CreateWindow(windowWidth, windowHeight, "texstream demo", nil, nil)
	if err != nil {
		logrus.WithError(err).Fatal("window creation failed")
	}

	// Hidden context sharing the main one; the transfer worker makes
	// it current on its own locked thread.
	glfw.WindowHint(glfw.Visible, glfw.False)
	transferCtx, err := glfw.CreateWindow(1, 1, "texstream transfer", nil, window)
	if err != nil {
		logrus.WithError(err).Fatal("transfer context creation failed")
	}

	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	if err := gl.Init(); err != nil {
		logrus.WithError(err).Fatal("gl init failed")
	}

	backend := gltex.NewBackend(gltex.GL41{}, gltex.Config{
		TransferWorkers: 1,
		WorkerSetup: func() {
			runtime.LockOSThread()
			transferCtx.MakeContextCurrent()
		},
	})
	defer backend.Close()

	tex := gpu.NewTexture2D(textureSize, textureSize, 0, gpu.DefaultSampler())
	if err := tex.LoadImage(checkerboard(0)); err != nil {
		logrus.WithError(err).Fatal("staging initial texture failed")
	}

	program, err := newProgram(vertexShader, fragmentShader)
	if err != nil {
		logrus.WithError(err).Fatal("shader compilation failed")
	}
	defer gl.DeleteProgram(program)
	mvpLoc := gl.GetUniformLocation(program, gl.Str("mvp\x00"))
	texLoc := gl.GetUniformLocation(program, gl.Str("tex\x00"))

	vao, vbo := makeQuad()
	defer gl.DeleteVertexArrays(1, &vao)
	defer gl.DeleteBuffers(1, &vbo)

	gl.ClearColor(0.1, 0.1, 0.12, 1.0)

	mem := backend.Accountant()
	start := time.Now()
	lastRestage := start
	lastReport := start
	frame := 0

	for !window.ShouldClose() {
		now := time.Now()

		// Re-stage the texture once a second; the coordinator picks
		// the new content up without stalling this loop.
		if now.Sub(lastRestage) >= time.Second {
			lastRestage = now
			if err := tex.LoadImage(checkerboard(frame)); err != nil {
				logrus.WithError(err).Error("restaging texture failed")
			}
		}

		gl.Clear(gl.COLOR_BUFFER_BIT)

		if id := backend.Prepare(tex, true); id != 0 {
			angle := float32(now.Sub(start).Seconds())
			mvp := mgl32.HomogRotate3DZ(angle * 0.3)

			gl.UseProgram(program)
			gl.UniformMatrix4fv(mvpLoc, 1, false, &mvp[0])
			gl.ActiveTexture(gl.TEXTURE0)
			gl.BindTexture(gl.TEXTURE_2D, id)
			gl.Uniform1i(texLoc, 0)
			gl.BindVertexArray(vao)
			gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
			gl.BindVertexArray(0)
		}

		backend.Recycle()

		if now.Sub(lastReport) >= 5*time.Second {
			lastReport = now
			logrus.WithFields(logrus.Fields{
				"resident": mem.ResidentTotal(),
				"virtual":  mem.VirtualTotal(),
				"pressure": fmt.Sprintf("%.3f", mem.Pressure()),
				"textures": mem.TextureCount(),
			}).Info("texture memory")
		}

		window.SwapBuffers()
		glfw.PollEvents()
		frame++
	}
}

// checkerboard renders an 8x8 checker pattern whose palette shifts
// with the frame counter, so restaged content is visibly new.
func checkerboard(frame int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, textureSize, textureSize))
	shift := uint8(frame * 13)
	const cell = textureSize / 8
	for y := 0; y < textureSize; y++ {
		for x := 0; x < textureSize; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.Set(x, y, color.RGBA{220 - shift, 80 + shift, shift, 255})
			} else {
				img.Set(x, y, color.RGBA{30, 30, 40, 255})
			}
		}
	}
	return img
}

func makeQuad() (vao, vbo uint32) {
	vertices := []float32{
		// x, y, u, v
		-0.6, 0.6, 0, 0,
		-0.6, -0.6, 0, 1,
		0.6, 0.6, 1, 0,
		0.6, -0.6, 1, 1,
	}

	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 16, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 16, gl.PtrOffset(8))

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return vao, vbo
}

const vertexShader = `#version 410 core
layout(location = 0) in vec2 position;
layout(location = 1) in vec2 uv;
uniform mat4 mvp;
out vec2 fragUV;
void main() {
	fragUV = uv;
	gl_Position = mvp * vec4(position, 0.0, 1.0);
}` + "\x00"

const fragmentShader = `#version 410 core
in vec2 fragUV;
uniform sampler2D tex;
out vec4 fragColor;
void main() {
	fragColor = texture(tex, fragUV);
}` + "\x00"

func newProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertex, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertex)

	fragment, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragment)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertex)
	gl.AttachShader(program, fragment)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("failed to link program: %v", infoLog)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("failed to compile shader: %v", infoLog)
	}
	return shader, nil
}
